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

	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "DEMO_KEY", cfg.NASA.APIKey)
	assert.Equal(t, "https://api.nasa.gov", cfg.NASA.BaseURL)
	assert.Equal(t, "https://services.swpc.noaa.gov", cfg.SWPC.BaseURL)
	assert.Equal(t, time.Hour, cfg.TTL.APOD)
	assert.Equal(t, 5*time.Second, cfg.Tracker.Interval)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SPACEDASH_NASA_API_KEY", "abc123")
	t.Setenv("SPACEDASH_TTL_APOD", "90s")
	t.Setenv("SPACEDASH_CACHE_BACKEND", " Redis ")
	t.Setenv("SPACEDASH_REDIS_ADDR", "localhost:6379")
	t.Setenv("SPACEDASH_CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.NASA.APIKey)
	assert.Equal(t, 90*time.Second, cfg.TTL.APOD)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SPACEDASH_CACHE_BACKEND", "memcached")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresBackendConnectionSettings(t *testing.T) {
	t.Setenv("SPACEDASH_CACHE_BACKEND", "postgres")
	_, err := Load()
	require.ErrorContains(t, err, "SPACEDASH_POSTGRES_DSN")

	t.Setenv("SPACEDASH_CACHE_BACKEND", "redis")
	_, err = Load()
	require.ErrorContains(t, err, "SPACEDASH_REDIS_URL")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SPACEDASH_TTL_MARS", "six hours")
	_, err := Load()
	require.Error(t, err)
}
