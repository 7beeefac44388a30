package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorturl/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// No config file next to the test binary: every value falls back to its
	// default.
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 6, cfg.ShortURL.CodeLength)
	assert.Equal(t, 20, cfg.ShortURL.MaxCodeLength)
	assert.Equal(t, 1000, cfg.Cache.MaxSize)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := &config.Config{}
	cfg.ShortURL.DefaultValidityMinutes = 30
	cfg.Cache.TTLMinutes = 5
	cfg.Cache.SweepIntervalMinutes = 10
	cfg.Cleanup.IntervalMinutes = 45
	cfg.GeoIP.TimeoutMS = 2000
	cfg.Analytics.TimeoutSeconds = 5

	assert.Equal(t, 30*time.Minute, cfg.DefaultValidity())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 10*time.Minute, cfg.CacheSweepInterval())
	assert.Equal(t, 45*time.Minute, cfg.CleanupInterval())
	assert.Equal(t, 2*time.Second, cfg.GeoIPTimeout())
	assert.Equal(t, 5*time.Second, cfg.AnalyticsTimeout())
}
