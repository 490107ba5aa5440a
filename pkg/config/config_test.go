package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.Window)
	assert.True(t, cfg.Retention.SweepOnRecycleBin)
	assert.Equal(t, CascadeModeAtomic, cfg.Cascade.Mode)
	assert.Equal(t, 4, cfg.Lock.MinPasswordLength)
	assert.Equal(t, "#4ECDC4", cfg.Defaults.Color)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("CASCADE_MODE", "detached")
	t.Setenv("CASCADE_CONCURRENCY", "-1")
	t.Setenv("RETENTION_WINDOW", "48h")
	t.Setenv("RETRY_BASE_DELAY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://app.notevault.dev, ,http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, CascadeModeDetached, cfg.Cascade.Mode)
	assert.Equal(t, 8, cfg.Cascade.Concurrency)
	assert.Equal(t, 48*time.Hour, cfg.Retention.Window)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, []string{"https://app.notevault.dev", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestNormalizeCascadeMode(t *testing.T) {
	assert.Equal(t, CascadeModeJoin, normalizeCascadeMode(" JOIN "))
	assert.Equal(t, CascadeModeAtomic, normalizeCascadeMode("unknown"))
	assert.Equal(t, CascadeModeAtomic, normalizeCascadeMode(""))
}
