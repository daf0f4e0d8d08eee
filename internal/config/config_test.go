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

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "browser", cfg.Fetch.Backend)
	assert.Equal(t, 3, cfg.Crawl.ConcurrentLimit)
	assert.Equal(t, 10, cfg.Crawl.MaxSuppliers)
	assert.Equal(t, 5, cfg.Crawl.MaxProductsPerSeller)
	assert.False(t, cfg.Crawl.AbortOnAntibot)
	assert.Equal(t, 3, cfg.Crawl.MaxRetries)
	assert.Equal(t, time.Second, cfg.Crawl.RetryBase)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("FETCH_BACKEND", "renderapi")
	t.Setenv("RENDER_API_KEY", "secret")
	t.Setenv("CRAWL_CONCURRENT_LIMIT", "7")
	t.Setenv("CRAWL_ABORT_ON_ANTIBOT", "true")
	t.Setenv("CRAWL_RATE_LIMIT_MIN", "2s")
	t.Setenv("CRAWL_RATE_LIMIT_MAX", "4s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "renderapi", cfg.Fetch.Backend)
	assert.Equal(t, "secret", cfg.Fetch.RenderAPIKey)
	assert.Equal(t, 7, cfg.Crawl.ConcurrentLimit)
	assert.True(t, cfg.Crawl.AbortOnAntibot)
	assert.Equal(t, 2*time.Second, cfg.Crawl.RateLimitMin)
	assert.Equal(t, 4*time.Second, cfg.Crawl.RateLimitMax)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Fetch.Backend = "carrier-pigeon" }},
		{"renderapi without key", func(c *Config) { c.Fetch.Backend = "renderapi"; c.Fetch.RenderAPIKey = "" }},
		{"zero concurrency", func(c *Config) { c.Crawl.ConcurrentLimit = 0 }},
		{"inverted rate limit range", func(c *Config) {
			c.Crawl.RateLimitMin = 10 * time.Second
			c.Crawl.RateLimitMax = time.Second
		}},
		{"zero suppliers", func(c *Config) { c.Crawl.MaxSuppliers = 0 }},
		{"unknown cache type", func(c *Config) { c.Cache.Type = "filesystem" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMalformedEnvValuesFallBack(t *testing.T) {
	t.Setenv("CRAWL_CONCURRENT_LIMIT", "many")
	t.Setenv("CRAWL_RETRY_BASE", "soon")
	t.Setenv("CRAWL_ABORT_ON_ANTIBOT", "yep")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Crawl.ConcurrentLimit)
	assert.Equal(t, time.Second, cfg.Crawl.RetryBase)
	assert.False(t, cfg.Crawl.AbortOnAntibot)
}
