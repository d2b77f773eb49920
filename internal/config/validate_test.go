// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Defaults(t *testing.T) {
	errs := Default().Validate()
	assert.Empty(t, errs, "expected no errors for default config")
}

func TestValidate_Empty(t *testing.T) {
	errs := (&Config{}).Validate()
	for _, field := range []string{
		"database.path", "catalog.base_url", "catalog.timeout", "catalog.burst",
		"search.debounce", "search.min_query_length", "search.limit",
		"session.token_file", "session.token_ttl",
	} {
		assert.True(t, containsError(errs, field), "expected %s error, got %v", field, errs)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.Catalog.BaseURL = "/v4" }, "catalog.base_url"},
		{"non-http base url", func(c *Config) { c.Catalog.BaseURL = "ftp://api.jikan.moe/v4" }, "catalog.base_url"},
		{"negative timeout", func(c *Config) { c.Catalog.Timeout = -time.Second }, "catalog.timeout"},
		{"negative cache ttl", func(c *Config) { c.Catalog.CacheTTL = -time.Minute }, "catalog.cache_ttl"},
		{"negative rate", func(c *Config) { c.Catalog.RequestsPerSecond = -1 }, "catalog.requests_per_second"},
		{"zero burst", func(c *Config) { c.Catalog.Burst = 0 }, "catalog.burst"},
		{"zero debounce", func(c *Config) { c.Search.Debounce = 0 }, "search.debounce"},
		{"zero min length", func(c *Config) { c.Search.MinQueryLength = 0 }, "search.min_query_length"},
		{"limit too large", func(c *Config) { c.Search.Limit = 26 }, "search.limit"},
		{"limit zero", func(c *Config) { c.Search.Limit = 0 }, "search.limit"},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, "session.secret"},
		{"zero token ttl", func(c *Config) { c.Session.TokenTTL = 0 }, "session.token_ttl"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			assert.Len(t, errs, 1, "got %v", errs)
			assert.True(t, containsError(errs, tt.field), "expected %s error, got %v", tt.field, errs)
		})
	}
}

func TestValidate_BoundaryValues(t *testing.T) {
	cfg := Default()
	cfg.Search.Limit = 25
	cfg.Search.MinQueryLength = 1
	cfg.Session.Secret = "0123456789abcdef"
	cfg.Catalog.CacheTTL = 0
	assert.Empty(t, cfg.Validate())
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
