// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Database kinds.
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Session backends.
const (
	SessionMemory   = "memory"
	SessionPostgres = "postgres"
	SessionSQLite   = "sqlite"
	SessionRedis    = "redis"
	SessionSigned   = "signed"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// OIDC configures optional single sign-on.
type OIDC struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether SSO is configured.
func (o OIDC) Enabled() bool {
	return o.Issuer != ""
}

// Config is the validated service configuration.
type Config struct {
	Addr           string
	DatabaseURL    string
	SessionBackend string
	SessionTTL     time.Duration
	SessionSecret  string
	RedisAddr      string
	RedisUsername  string
	RedisPassword  string
	UploadDir      string
	LogLevel       slog.Level
	CookieSecure   bool
	OIDC           OIDC
}

// Load reads envFile into the process environment, without overriding
// variables already set, and builds a Config from the result. A missing
// envFile is not an error.
func Load(envFile string, getenv func(string) string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	dataDir := filepath.Join(xdg.DataHome, "ems")
	cfg := &Config{
		Addr:          env("ADDR", ":8080"),
		DatabaseURL:   env("DATABASE_URL", "sqlite://"+filepath.Join(dataDir, "ems.sqlite")),
		SessionSecret: getenv("SESSION_SECRET"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisUsername: getenv("REDIS_USERNAME"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		UploadDir:     env("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
		OIDC: OIDC{
			Issuer:       env("OIDC_ISSUER", ""),
			ClientID:     env("OIDC_CLIENT_ID", ""),
			ClientSecret: getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  env("OIDC_REDIRECT_URL", ""),
		},
	}

	kind, _, err := cfg.Database()
	if err != nil {
		return nil, err
	}
	cfg.SessionBackend = strings.ToLower(env("SESSION_BACKEND", kind))

	ttl, err := time.ParseDuration(env("SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("%w: SESSION_TTL: %w", ErrInvalid, err)
	}
	cfg.SessionTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL: %w", ErrInvalid, err)
	}

	secure, err := strconv.ParseBool(env("COOKIE_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("%w: COOKIE_SECURE: %w", ErrInvalid, err)
	}
	cfg.CookieSecure = secure

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Database splits DatabaseURL into its kind and the driver connection
// string: the full URL for postgres, the file path for sqlite.
func (c *Config) Database() (kind, dsn string, err error) {
	u := c.DatabaseURL
	switch {
	case u == DatabaseMemory:
		return DatabaseMemory, "", nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DatabasePostgres, u, nil
	case strings.HasPrefix(u, "sqlite://"):
		path := strings.TrimPrefix(u, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: DATABASE_URL: sqlite path is empty", ErrInvalid)
		}
		return DatabaseSQLite, path, nil
	default:
		return "", "", fmt.Errorf("%w: DATABASE_URL: unsupported scheme in %q", ErrInvalid, u)
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	kind, _, err := c.Database()
	if err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalid)
	}

	switch c.SessionBackend {
	case SessionMemory, SessionRedis:
	case SessionPostgres, SessionSQLite:
		if c.SessionBackend != kind {
			return fmt.Errorf("%w: SESSION_BACKEND %s needs a %s DATABASE_URL", ErrInvalid, c.SessionBackend, c.SessionBackend)
		}
	case SessionSigned:
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("%w: SESSION_SECRET must be at least 32 bytes for signed sessions", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown SESSION_BACKEND %q", ErrInvalid, c.SessionBackend)
	}

	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		return fmt.Errorf("%w: OIDC_ISSUER requires OIDC_CLIENT_ID and OIDC_REDIRECT_URL", ErrInvalid)
	}
	return nil
}
