package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"epstream/pkg/debrid"
	"epstream/pkg/env"
	"epstream/pkg/logger"
	"epstream/pkg/paths"
	"epstream/pkg/quality"
)

// FileName is the config file looked up in the data directory.
const FileName = "config.json"

// Config holds application configuration
type Config struct {
	// Addon settings
	AddonPort    int    `json:"addon_port"`
	AddonBaseURL string `json:"addon_base_url"`
	LogLevel     string `json:"log_level"`
	LogToFile    bool   `json:"log_to_file"`

	// Upstream services
	EpornerAPIURL    string `json:"eporner_api_url"`
	EmbedBaseURL     string `json:"embed_base_url"`
	RealDebridAPIURL string `json:"realdebrid_api_url"`

	// Resolution settings
	QualityPreferenceOrder []string `json:"quality_preference_order"`
	RequestTimeoutMs       int      `json:"request_timeout_ms"`
	MaxPollingAttempts     int      `json:"max_polling_attempts"`
	PollIntervalMs         int      `json:"poll_interval_ms"`

	// Catalog settings
	CatalogPageSize        int `json:"catalog_page_size"`
	CatalogCacheTTLSeconds int `json:"catalog_cache_ttl_seconds"`
	CatalogCacheSize       int `json:"catalog_cache_size"`

	// Internal - where was this config loaded from?
	LoadedPath string `json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AddonPort:              8000,
		AddonBaseURL:           "http://localhost:8000",
		LogLevel:               "INFO",
		EpornerAPIURL:          "https://www.eporner.com/api/v2",
		EmbedBaseURL:           "https://www.eporner.com/embed",
		RealDebridAPIURL:       "https://api.real-debrid.com/rest/1.0",
		QualityPreferenceOrder: append([]string(nil), quality.DefaultOrder...),
		RequestTimeoutMs:       10000,
		MaxPollingAttempts:     1,
		PollIntervalMs:         2000,
		CatalogPageSize:        20,
		CatalogCacheTTLSeconds: 300,
		CatalogCacheSize:       256,
	}
}

// Load is intended for startup only. It loads configuration from config.json in
// the data directory, applies environment variable overrides once, validates the
// result, then saves the merged config.
// Priority: Environment variables (if not empty) > config.json > defaults
func Load(fs afero.Fs) (*Config, error) {
	dataDir := paths.GetDataDir()
	if err := fs.MkdirAll(dataDir, 0755); err != nil {
		logger.Warn("Failed to create data directory", "dir", dataDir, "err", err)
	}
	return LoadFrom(fs, filepath.Join(dataDir, FileName))
}

// LoadFrom behaves like Load with an explicit config path.
func LoadFrom(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	cfg.LoadedPath = path

	if err := cfg.LoadFile(fs, path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No config found, creating new one", "path", path)
		} else {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		logger.Info("Loaded configuration", "path", path)
	}

	overrides, keys := env.ReadConfigOverrides()
	ApplyEnvOverrides(cfg, overrides, keys)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(fs); err != nil {
		logger.Warn("Failed to save config on startup", "err", err)
	} else {
		logger.Debug("Saved merged configuration", "path", path)
	}

	return cfg, nil
}

// LoadFile overrides config with values from a JSON file
func (c *Config) LoadFile(fs afero.Fs, path string) error {
	file, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(c)
}

// Save saves the current configuration to the file it was loaded from
func (c *Config) Save(fs afero.Fs) error {
	path := c.LoadedPath
	if path == "" {
		path = FileName
	}
	return c.SaveFile(fs, path)
}

// SaveFile saves the current configuration to a JSON file
func (c *Config) SaveFile(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, append(data, '\n'), 0644)
}

// Validate rejects settings the resolution pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	order := lo.Compact(lo.Map(c.QualityPreferenceOrder, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	if len(order) == 0 {
		errs = append(errs, errors.New("quality_preference_order must name at least one label"))
	}
	if len(lo.Uniq(order)) != len(order) {
		errs = append(errs, errors.New("quality_preference_order contains duplicate labels"))
	}
	if c.RequestTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout_ms must be positive, got %d", c.RequestTimeoutMs))
	}
	if c.MaxPollingAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_polling_attempts must be at least 1, got %d", c.MaxPollingAttempts))
	}
	if c.PollIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must not be negative, got %d", c.PollIntervalMs))
	}
	if c.AddonPort <= 0 || c.AddonPort > 65535 {
		errs = append(errs, fmt.Errorf("addon_port out of range: %d", c.AddonPort))
	}
	if c.CatalogPageSize <= 0 {
		errs = append(errs, fmt.Errorf("catalog_page_size must be positive, got %d", c.CatalogPageSize))
	}
	if c.EpornerAPIURL == "" || c.RealDebridAPIURL == "" || c.EmbedBaseURL == "" {
		errs = append(errs, errors.New("upstream URLs must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	c.QualityPreferenceOrder = order
	return nil
}

// RequestTimeout is the bound applied to every upstream call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// PollInterval is the delay between whole-pipeline retries.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// CatalogCacheTTL is how long catalog pages are reused. Zero disables the cache.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCacheTTLSeconds) * time.Second
}

// RetryPolicy is the caller-side retry policy for NotReadyYet outcomes.
func (c *Config) RetryPolicy() debrid.RetryPolicy {
	return debrid.RetryPolicy{
		MaxAttempts: c.MaxPollingAttempts,
		Interval:    c.PollInterval(),
	}
}

// ApplyEnvOverrides applies environment-derived overrides to cfg (used at startup only).
// Only fields present in keys are applied, so env vars override file values per setting.
func ApplyEnvOverrides(cfg *Config, o env.ConfigOverrides, keys []string) {
	has := func(k string) bool { return lo.Contains(keys, k) }

	if has(env.KeyAddonPort) {
		cfg.AddonPort = o.AddonPort
	}
	if has(env.KeyAddonBaseURL) {
		cfg.AddonBaseURL = o.AddonBaseURL
	}
	if has(env.KeyLogLevel) {
		cfg.LogLevel = o.LogLevel
	}
	if has(env.KeyEpornerAPIURL) {
		cfg.EpornerAPIURL = o.EpornerAPIURL
	}
	if has(env.KeyEmbedBaseURL) {
		cfg.EmbedBaseURL = o.EmbedBaseURL
	}
	if has(env.KeyRealDebridAPIURL) {
		cfg.RealDebridAPIURL = o.RealDebridAPIURL
	}
	if has(env.KeyQualityPreferenceOrder) {
		cfg.QualityPreferenceOrder = o.QualityPreferenceOrder
	}
	if has(env.KeyRequestTimeoutMs) {
		cfg.RequestTimeoutMs = o.RequestTimeoutMs
	}
	if has(env.KeyMaxPollingAttempts) {
		cfg.MaxPollingAttempts = o.MaxPollingAttempts
	}
	if has(env.KeyPollIntervalMs) {
		cfg.PollIntervalMs = o.PollIntervalMs
	}
	if has(env.KeyCatalogPageSize) {
		cfg.CatalogPageSize = o.CatalogPageSize
	}
	if has(env.KeyCatalogCacheTTL) {
		cfg.CatalogCacheTTLSeconds = o.CatalogCacheTTLSeconds
	}
}

// GetEnvOverrideKeys returns config JSON keys that have environment variable overrides set.
func GetEnvOverrideKeys() []string {
	return env.OverrideKeys()
}
