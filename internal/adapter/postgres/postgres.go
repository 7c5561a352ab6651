package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"ems/internal/domain"
)

var (
	_ domain.EmployeeRepository = (*DB)(nil)
	_ domain.UserRepository     = (*DB)(nil)
	_ domain.SessionStore       = (*SessionRepo)(nil)
	_ domain.SessionSweeper     = (*SessionRepo)(nil)
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

const (
	maxOpenConns = 10
	maxIdleConns = 5
	connLifetime = 5 * time.Minute
	openTimeout  = 5 * time.Second
)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(ctx context.Context, logger *slog.Logger, connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(maxOpenConns)
	s.SetMaxIdleConns(maxIdleConns)
	s.SetConnMaxLifetime(connLifetime)

	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.DebugContext(ctx, "postgres schema ready")
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS employees (id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL, email TEXT NOT NULL DEFAULT '', department TEXT NOT NULL DEFAULT '', designation TEXT NOT NULL DEFAULT '', salary DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK(salary >= 0), photo TEXT NOT NULL DEFAULT '', created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department);",
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, identity TEXT NOT NULL, role TEXT NOT NULL, subject_id BIGINT NOT NULL DEFAULT 0, expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Older directories predate roles; existing logins default to Employee.
	alterStmts := []string{
		"ALTER TABLE users ADD COLUMN IF NOT EXISTS role TEXT NOT NULL DEFAULT 'Employee';",
		"ALTER TABLE users ADD COLUMN IF NOT EXISTS employee_id BIGINT NOT NULL DEFAULT 0;",
	}
	for _, stmt := range alterStmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
