package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.RESTPort)
	assert.Equal(t, "8081", cfg.WSPort)
	assert.Equal(t, "https://howlongtobeat.com", cfg.HLTBBaseURL)
	assert.False(t, cfg.ScraperRender)
	assert.Equal(t, 24*time.Hour, cfg.CacheRetention)
	assert.Equal(t, 2048, cfg.CacheMaxEntries)
	assert.Equal(t, 1500*time.Millisecond, cfg.QueueSpacing)
	assert.Equal(t, 3, cfg.APIMaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PLAYTIME_REST_PORT", "9090")
	t.Setenv("PLAYTIME_CACHE_MAX_ENTRIES", "16")
	t.Setenv("PLAYTIME_SCRAPER_RENDER", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.RESTPort)
	assert.Equal(t, 16, cfg.CacheMaxEntries)
	assert.True(t, cfg.ScraperRender)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"rest_port: \"7777\"\ncache_retention: 1h\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.RESTPort)
	assert.Equal(t, time.Hour, cfg.CacheRetention)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, "8081", cfg.WSPort)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("PLAYTIME_CACHE_MAX_ENTRIES", "0")
	_, err := Load("")
	assert.Error(t, err)
}
