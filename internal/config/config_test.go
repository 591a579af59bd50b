package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "fallback_data", cfg.Store.Key)
	assert.Equal(t, 24*time.Hour, cfg.Store.FreshWindow)
	assert.False(t, cfg.Tracing.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lastgood.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
store:
  fresh_window: 2h
logging:
  format: json
`), 0600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.Equal(t, "lastgood:", cfg.Storage.Redis.KeyPrefix, "unset fields keep defaults")
	assert.Equal(t, 2*time.Hour, cfg.Store.FreshWindow)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unterminated"), 0600))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LASTGOOD_STORAGE_DRIVER", "postgres")
	t.Setenv("LASTGOOD_STORAGE_DSN", "postgres://localhost/lastgood")
	t.Setenv("LASTGOOD_STORAGE_KEY", "prices")
	t.Setenv("LASTGOOD_FRESH_WINDOW", "90m")
	t.Setenv("LASTGOOD_REDIS_DB", "3")
	t.Setenv("LASTGOOD_TRACING_ENABLED", "true")

	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/lastgood", cfg.Storage.DSN)
	assert.Equal(t, "prices", cfg.Store.Key)
	assert.Equal(t, 90*time.Minute, cfg.Store.FreshWindow)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr, "unset vars keep the current value")
}

func TestLoadFromEnvError(t *testing.T) {
	t.Setenv("LASTGOOD_REDIS_DB", "not-an-int")
	err := LoadFromEnv(DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadValidates(t *testing.T) {
	t.Setenv("LASTGOOD_STORAGE_DRIVER", "etcd")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Key = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.FreshWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Storage.Driver = "none"
	assert.NoError(t, cfg.Validate())
}
