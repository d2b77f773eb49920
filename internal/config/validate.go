// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// maxSearchLimit is the largest page the catalog API serves.
const maxSearchLimit = 25

const minSecretLength = 16

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path: required")
	}

	// Catalog validation
	if u, err := url.Parse(c.Catalog.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("catalog.base_url: must be an absolute http(s) URL, got %q", c.Catalog.BaseURL))
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("catalog.timeout: must be positive, got %s", c.Catalog.Timeout))
	}
	if c.Catalog.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("catalog.cache_ttl: must not be negative, got %s", c.Catalog.CacheTTL))
	}
	if c.Catalog.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Sprintf("catalog.requests_per_second: must not be negative, got %g", c.Catalog.RequestsPerSecond))
	}
	if c.Catalog.Burst < 1 {
		errs = append(errs, fmt.Sprintf("catalog.burst: must be at least 1, got %d", c.Catalog.Burst))
	}

	// Search validation
	if c.Search.Debounce <= 0 {
		errs = append(errs, fmt.Sprintf("search.debounce: must be positive, got %s", c.Search.Debounce))
	}
	if c.Search.MinQueryLength < 1 {
		errs = append(errs, fmt.Sprintf("search.min_query_length: must be at least 1, got %d", c.Search.MinQueryLength))
	}
	if c.Search.Limit < 1 || c.Search.Limit > maxSearchLimit {
		errs = append(errs, fmt.Sprintf("search.limit: must be between 1 and %d, got %d", maxSearchLimit, c.Search.Limit))
	}

	// Session validation
	if c.Session.Secret != "" && len(c.Session.Secret) < minSecretLength {
		errs = append(errs, fmt.Sprintf("session.secret: must be at least %d bytes", minSecretLength))
	}
	if c.Session.TokenFile == "" {
		errs = append(errs, "session.token_file: required")
	}
	if c.Session.TokenTTL <= 0 {
		errs = append(errs, fmt.Sprintf("session.token_ttl: must be positive, got %s", c.Session.TokenTTL))
	}

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errs
}
