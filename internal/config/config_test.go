package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "https://api.numista.com/v3", cfg.Catalog.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Catalog.MinInterval())
	assert.Equal(t, 30, cfg.Catalog.TimeoutSecs)
	assert.Equal(t, 720*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, 2000, cfg.Cache.MonthlyLimit)
	assert.Equal(t, 10*time.Second, cfg.Cache.LockTimeout())
	assert.Equal(t, 90, cfg.Enrich.AutoSelectThreshold)
	assert.True(t, cfg.Enrich.NoMarkMeansDefaultMint)
	assert.False(t, cfg.Enrich.FetchPricing)
	assert.Equal(t, 1, cfg.Batch.MaxConcurrentRecords)
	assert.Equal(t, 3, cfg.Batch.RetryAttempts)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NUMISYNC_CATALOG_KEY", "test-key")
	t.Setenv("NUMISYNC_STORE_DRIVER", "postgres")
	t.Setenv("NUMISYNC_ENRICH_NO_MARK_MEANS_DEFAULT_MINT", "false")
	t.Setenv("NUMISYNC_ENRICH_UNIT_ALIAS_PATH", "units.yaml")
	t.Setenv("NUMISYNC_ENRICH_ISSUER_ALIAS_PATH", "issuers.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Catalog.Key)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.False(t, cfg.Enrich.NoMarkMeansDefaultMint)
	assert.Equal(t, "units.yaml", cfg.Enrich.UnitAliasPath)
	assert.Equal(t, "issuers.yaml", cfg.Enrich.IssuerAliasPath)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
