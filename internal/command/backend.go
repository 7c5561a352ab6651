package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ems/internal/adapter/memory"
	"ems/internal/adapter/postgres"
	"ems/internal/adapter/redis"
	"ems/internal/adapter/signed"
	"ems/internal/adapter/sqlite"
	"ems/internal/config"
	"ems/internal/domain"
)

// backend bundles the repositories selected by configuration.
type backend struct {
	users     domain.UserRepository
	employees domain.EmployeeRepository
	sessions  domain.SessionStore
	closers   []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

type repositories interface {
	domain.UserRepository
	domain.EmployeeRepository
}

// errEphemeralDatabase is returned by commands whose writes would vanish
// with the process.
var errEphemeralDatabase = errors.New("DATABASE_URL=memory is not persistent; point it at postgres or sqlite for this command")

// openPersistentBackend is openBackend for one-shot commands, which refuse
// the in-memory database.
func openPersistentBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	kind, _, err := cfg.Database()
	if err != nil {
		return nil, err
	}
	if kind == config.DatabaseMemory {
		return nil, errEphemeralDatabase
	}
	return openBackend(ctx, cfg, logger)
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	kind, dsn, err := cfg.Database()
	if err != nil {
		return nil, err
	}

	b := &backend{}
	var (
		pg *postgres.DB
		sq *sqlite.DB
	)
	var repos repositories
	switch kind {
	case config.DatabaseMemory:
		repos = memory.New()
	case config.DatabasePostgres:
		if pg, err = postgres.Open(ctx, logger, dsn); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repos = pg
		b.closers = append(b.closers, pg.Close)
	case config.DatabaseSQLite:
		if sq, err = sqlite.Open(ctx, logger, dsn); err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		repos = sq
		b.closers = append(b.closers, sq.Close)
	}
	b.users, b.employees = repos, repos

	switch cfg.SessionBackend {
	case config.SessionMemory:
		b.sessions = memory.NewSessionRepo(cfg.SessionTTL)
	case config.SessionPostgres:
		b.sessions = postgres.NewSessionRepo(pg, cfg.SessionTTL)
	case config.SessionSQLite:
		b.sessions = sqlite.NewSessionRepo(sq, cfg.SessionTTL)
	case config.SessionRedis:
		client, err := redis.Dial(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.sessions = redis.NewSessionStore(client, cfg.SessionTTL)
	case config.SessionSigned:
		s, err := signed.NewSessionStore([]byte(cfg.SessionSecret), cfg.SessionTTL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.sessions = s
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
	return b, nil
}

// sweepSessions purges expired sessions every interval until ctx ends.
func sweepSessions(ctx context.Context, logger *slog.Logger, sweeper domain.SessionSweeper, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sweeper.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
				logger.WarnContext(ctx, "session sweep failed", slog.Any("error", err))
			}
		}
	}
}
