package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, strings.HasPrefix(cfg.DatabaseURL, "sqlite://"))
	assert.Equal(t, SessionSQLite, cfg.SessionBackend)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.OIDC.Enabled())
}

func TestSessionBackendFollowsDatabase(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"DATABASE_URL": "postgres://u:p@db/ems"}))
	require.NoError(t, err)
	assert.Equal(t, SessionPostgres, cfg.SessionBackend)

	kind, dsn, err := cfg.Database()
	require.NoError(t, err)
	assert.Equal(t, DatabasePostgres, kind)
	assert.Equal(t, "postgres://u:p@db/ems", dsn)

	cfg, err = FromEnv(envMap(map[string]string{"DATABASE_URL": "memory"}))
	require.NoError(t, err)
	assert.Equal(t, SessionMemory, cfg.SessionBackend)
}

func TestInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad scheme":         {"DATABASE_URL": "mysql://x"},
		"empty sqlite path":  {"DATABASE_URL": "sqlite://"},
		"bad ttl":            {"SESSION_TTL": "forever"},
		"negative ttl":       {"SESSION_TTL": "-1h"},
		"bad level":          {"LOG_LEVEL": "loud"},
		"bad bool":           {"COOKIE_SECURE": "sometimes"},
		"unknown backend":    {"SESSION_BACKEND": "files"},
		"mismatched backend": {"DATABASE_URL": "memory", "SESSION_BACKEND": "postgres"},
		"short secret":       {"SESSION_BACKEND": "signed", "SESSION_SECRET": "short"},
		"partial oidc":       {"OIDC_ISSUER": "https://id.example.com"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestSignedAndRedis(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"SESSION_BACKEND": "SIGNED",
		"SESSION_SECRET":  strings.Repeat("s", 32),
		"LOG_LEVEL":       "debug",
	}))
	require.NoError(t, err)
	assert.Equal(t, SessionSigned, cfg.SessionBackend)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)

	cfg, err = FromEnv(envMap(map[string]string{"SESSION_BACKEND": "redis", "REDIS_ADDR": "cache:6380"}))
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EMS_TEST_ADDR_UNUSED=1\nADDR=:9999\n"), 0o600))
	t.Setenv("ADDR", "")
	require.NoError(t, os.Unsetenv("ADDR"))

	cfg, err := Load(path, os.Getenv)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	t.Cleanup(func() { _ = os.Unsetenv("EMS_TEST_ADDR_UNUSED") })
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"), envMap(nil))
	require.NoError(t, err)
}
