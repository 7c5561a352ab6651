// Package sqlite implements the domain repositories on an embedded SQLite
// database, migrated with goose.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite" // sqlite sql.DB driver initialization

	"ems/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	_ domain.EmployeeRepository = (*DB)(nil)
	_ domain.UserRepository     = (*DB)(nil)
	_ domain.SessionStore       = (*SessionRepo)(nil)
	_ domain.SessionSweeper     = (*SessionRepo)(nil)
)

var registerHook sync.Once

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open initializes a SQLite connection to dbPath, creating the parent
// directory when needed, and migrates the schema to the latest version.
func Open(ctx context.Context, logger *slog.Logger, dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); err != nil {
			const userOnlyDirPerms = 0o700
			if err = os.MkdirAll(filepath.Dir(dbPath), userOnlyDirPerms); err != nil {
				return nil, fmt.Errorf("failed to create db parent directory: %w", err)
			}
		}
	}

	if strings.ContainsRune(dbPath, '?') {
		dbPath += "&"
	} else {
		dbPath += "?"
	}
	dbPath += "_time_format=sqlite"

	registerHook.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, _ string) error {
			const initSQL = `
			pragma journal_mode = WAL;
			pragma synchronous = normal;
			pragma foreign_keys = on;
			`
			_, err := conn.ExecContext(context.Background(), initSQL, nil)
			return err
		})
	})

	handle, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handler: %w", err)
	} else if err = handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	handle.SetMaxOpenConns(1)

	logger = logger.With(slog.String("db", dbPath))
	goose.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, handle, "migrations"); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &DB{sql: handle}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}
