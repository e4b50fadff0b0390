package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFrom(t, "")

	assert.Equal(t, 30, cfg.Deals.MinDiscount)
	assert.Equal(t, 99, cfg.Deals.MaxDiscount)
	assert.InDelta(t, 3.6, cfg.Deals.MinScore, 1e-9)
	assert.InDelta(t, 10.0, cfg.Deals.MaxPrice, 1e-9)
	assert.InDelta(t, 0.6, cfg.Suspect.TrustThreshold, 1e-9)
	assert.Equal(t, "file", cfg.Cache.Driver)
	assert.Equal(t, 30, cfg.Cache.MaxAgeDays)
	assert.Equal(t, 10, cfg.Sources.MaxConcurrent)
	assert.Equal(t, 500, cfg.Enrich.LookupSpacingMillis)
	assert.True(t, cfg.Features.EnableParallelFetch)
	assert.Empty(t, cfg.Webhooks.Premium)
}

func TestLoadFromFile(t *testing.T) {
	cfg := loadFrom(t, `
webhooks:
  premium: https://hooks.example.com/premium
  status: https://hooks.example.com/status
roles:
  premium: "<@&123>"
deals:
  min_discount: 50
cache:
  driver: sqlite
  path: /tmp/cache.db
`)

	assert.Equal(t, "https://hooks.example.com/premium", cfg.Webhooks.Premium)
	assert.Equal(t, "https://hooks.example.com/status", cfg.Webhooks.Status)
	assert.Equal(t, "<@&123>", cfg.Roles.Premium)
	assert.Equal(t, 50, cfg.Deals.MinDiscount)
	assert.Equal(t, 99, cfg.Deals.MaxDiscount)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("DEALWATCH_WEBHOOKS_PREMIUM", "https://env.example.com/hook")
	t.Setenv("DEALWATCH_APIS_GGDEALS_KEY", "sekrit")
	t.Setenv("DEALWATCH_DEALS_MIN_DISCOUNT", "70")

	cfg := loadFrom(t, `
webhooks:
  premium: https://file.example.com/hook
deals:
  min_discount: 40
`)

	assert.Equal(t, "https://env.example.com/hook", cfg.Webhooks.Premium)
	assert.Equal(t, "sekrit", cfg.APIs.GGDealsKey)
	assert.Equal(t, 70, cfg.Deals.MinDiscount)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
