// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Search   SearchConfig   `toml:"search"`
	Session  SessionConfig  `toml:"session"`
	Log      LogConfig      `toml:"log"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type CatalogConfig struct {
	BaseURL           string        `toml:"base_url"`
	Timeout           time.Duration `toml:"timeout"`
	CacheTTL          time.Duration `toml:"cache_ttl"`           // 0 disables the detail cache
	RequestsPerSecond float64       `toml:"requests_per_second"` // 0 disables pacing
	Burst             int           `toml:"burst"`
}

type SearchConfig struct {
	Debounce       time.Duration `toml:"debounce"`
	MinQueryLength int           `toml:"min_query_length"`
	Limit          int           `toml:"limit"`
}

type SessionConfig struct {
	Secret    string        `toml:"secret"` // empty: a generated key is kept next to the token file
	TokenFile string        `toml:"token_file"`
	TokenTTL  time.Duration `toml:"token_ttl"`
	Issuer    string        `toml:"issuer"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

const (
	defaultBaseURL        = "https://api.jikan.moe/v4"
	defaultTimeout        = 10 * time.Second
	defaultCacheTTL       = time.Hour
	defaultRequestsPerSec = 3
	defaultBurst          = 3
	defaultDebounce       = 500 * time.Millisecond
	defaultMinQueryLength = 3
	defaultSearchLimit    = 5
	defaultTokenTTL       = 30 * 24 * time.Hour
	defaultIssuer         = "anitrack"
	defaultLogLevel       = "info"
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, substitutes, parses and validates the configuration file.
// Any problem is reported as a *ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	cfg, err := parse(content)
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation loads the config without checking it. Unresolved
// environment variables are left in place.
func LoadWithoutValidation(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	content, _ := substituteEnvVars(string(data))
	return parse(content)
}

func parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Session.TokenFile = expandHome(cfg.Session.TokenFile)
	cfg.applyDefaults()
	return &cfg, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dataDir(), "anitrack.db")
	}
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultBaseURL
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = defaultTimeout
	}
	if c.Catalog.CacheTTL == 0 {
		c.Catalog.CacheTTL = defaultCacheTTL
	}
	if c.Catalog.RequestsPerSecond == 0 {
		c.Catalog.RequestsPerSecond = defaultRequestsPerSec
	}
	if c.Catalog.Burst == 0 {
		c.Catalog.Burst = defaultBurst
	}
	if c.Search.Debounce == 0 {
		c.Search.Debounce = defaultDebounce
	}
	if c.Search.MinQueryLength == 0 {
		c.Search.MinQueryLength = defaultMinQueryLength
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = defaultSearchLimit
	}
	if c.Session.TokenFile == "" {
		c.Session.TokenFile = filepath.Join(stateDir(), "session")
	}
	if c.Session.TokenTTL == 0 {
		c.Session.TokenTTL = defaultTokenTTL
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = defaultIssuer
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	r := *c
	if r.Session.Secret != "" {
		r.Session.Secret = "<redacted>"
	}
	return &r
}
