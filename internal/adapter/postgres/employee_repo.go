package postgres

import (
	"context"
	"database/sql"
	"strings"

	"ems/internal/domain"
)

const employeeColumns = "id, name, email, department, designation, salary, photo, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Department, &e.Designation, &e.Salary, &e.Photo, &e.CreatedAt)
	return e, err
}

// AddEmployee inserts a new employee row.
func (d *DB) AddEmployee(ctx context.Context, e domain.Employee) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO employees(name, email, department, designation, salary, photo, created_at) VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING id;",
		e.Name, e.Email, e.Department, e.Designation, e.Salary, e.Photo, e.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// GetEmployee retrieves an employee by id.
func (d *DB) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	e, err := scanEmployee(d.sql.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id=$1;", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEmployees returns every employee ordered by id.
func (d *DB) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return d.queryEmployees(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY id;")
}

// SearchEmployees matches query case-insensitively against name, email and department.
func (d *DB) SearchEmployees(ctx context.Context, query string) ([]domain.Employee, error) {
	return d.queryEmployees(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE name ILIKE $1 OR email ILIKE $1 OR department ILIKE $1 ORDER BY id;",
		"%"+escapeLike(query)+"%")
}

// UpdateEmployee overwrites the mutable columns of an employee.
func (d *DB) UpdateEmployee(ctx context.Context, e domain.Employee) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE employees SET name=$1, email=$2, department=$3, designation=$4, salary=$5, photo=$6 WHERE id=$7;",
		e.Name, e.Email, e.Department, e.Designation, e.Salary, e.Photo, e.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteEmployee removes an employee by id.
func (d *DB) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM employees WHERE id=$1;", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) queryEmployees(ctx context.Context, query string, args ...any) ([]domain.Employee, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
