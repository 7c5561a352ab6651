// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"ems/internal/domain"
)

const userColumns = "id, username, password_hash, role, employee_id, created_at"

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.EmployeeID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1",
		username,
	))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		id,
	))
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash string, role domain.Role, employeeID int64) (*domain.User, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"INSERT INTO users (username, password_hash, role, employee_id, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING "+userColumns,
		username, passwordHash, string(role), employeeID, time.Now().UTC(),
	))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return nil, domain.ErrUserExists
	}
	return u, err
}

// Delete removes a user by username.
func (d *DB) Delete(ctx context.Context, username string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM users WHERE username = $1", username)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// SessionRepo implements domain.SessionStore on the sessions table.
type SessionRepo struct {
	db  *DB
	ttl time.Duration
}

// NewSessionRepo wraps a DB as a session store whose sessions live for ttl.
func NewSessionRepo(db *DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{db: db, ttl: ttl}
}

// Create starts a new session and returns its token.
func (r *SessionRepo) Create(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error) {
	token, err := domain.NewToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, identity, role, subject_id, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		token, identity, string(role), subjectID, now.Add(r.ttl), now,
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get retrieves a live session by token.
func (r *SessionRepo) Get(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	var role string
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, identity, role, subject_id, expires_at, created_at FROM sessions WHERE token = $1 AND expires_at > $2",
		token, time.Now().UTC(),
	).Scan(&s.Token, &s.Identity, &role, &s.SubjectID, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Role = domain.Role(role)
	return &s, nil
}

// Destroy deletes a session by token.
func (r *SessionRepo) Destroy(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1", time.Now().UTC())
	return err
}
