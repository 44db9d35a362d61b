// Package env consolidates all environment variable reading for the application.
// Config overrides are applied only at startup (see config.Load).
package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Environment variable names (single source of truth)
const (
	ADDONPort              = "ADDON_PORT"
	ADDONBaseURL           = "ADDON_BASE_URL"
	LOGLevel               = "LOG_LEVEL"
	EpornerAPIURL          = "EPORNER_API_URL"
	EmbedBaseURL           = "EMBED_BASE_URL"
	RealDebridAPIURL       = "REALDEBRID_API_URL"
	QualityPreferenceOrder = "QUALITY_PREFERENCE_ORDER"
	RequestTimeoutMs       = "REQUEST_TIMEOUT_MS"
	MaxPollingAttempts     = "MAX_POLLING_ATTEMPTS"
	PollIntervalMs         = "POLL_INTERVAL_MS"
	CatalogPageSize        = "CATALOG_PAGE_SIZE"
	CatalogCacheTTLSeconds = "CATALOG_CACHE_TTL_SECONDS"
	TZVar                  = "TZ"
)

// Config JSON keys returned by OverrideKeys
const (
	KeyAddonPort              = "addon_port"
	KeyAddonBaseURL           = "addon_base_url"
	KeyLogLevel               = "log_level"
	KeyEpornerAPIURL          = "eporner_api_url"
	KeyEmbedBaseURL           = "embed_base_url"
	KeyRealDebridAPIURL       = "realdebrid_api_url"
	KeyQualityPreferenceOrder = "quality_preference_order"
	KeyRequestTimeoutMs       = "request_timeout_ms"
	KeyMaxPollingAttempts     = "max_polling_attempts"
	KeyPollIntervalMs         = "poll_interval_ms"
	KeyCatalogPageSize        = "catalog_page_size"
	KeyCatalogCacheTTL        = "catalog_cache_ttl_seconds"
)

// TZ returns the TZ environment variable (e.g. for logger timezone).
func TZ() string {
	return os.Getenv(TZVar)
}

// LogLevel returns LOG_LEVEL with default "INFO" (for early logger init before config).
func LogLevel() string {
	if v := os.Getenv(LOGLevel); v != "" {
		return v
	}
	return "INFO"
}

// ConfigOverrides holds all config values that can be set via environment variables.
// Used at startup by config.Load to apply overrides.
type ConfigOverrides struct {
	AddonPort              int
	AddonBaseURL           string
	LogLevel               string
	EpornerAPIURL          string
	EmbedBaseURL           string
	RealDebridAPIURL       string
	QualityPreferenceOrder []string
	RequestTimeoutMs       int
	MaxPollingAttempts     int
	PollIntervalMs         int
	CatalogPageSize        int
	CatalogCacheTTLSeconds int
}

// ReadConfigOverrides reads all relevant environment variables once and returns
// overrides to apply to config plus the list of config JSON keys that were set.
// Malformed integers are ignored rather than zeroing the setting.
func ReadConfigOverrides() (ConfigOverrides, []string) {
	var o ConfigOverrides
	var keys []string

	if v := os.Getenv(ADDONPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			o.AddonPort = port
			keys = append(keys, KeyAddonPort)
		}
	}
	if v := os.Getenv(ADDONBaseURL); v != "" {
		o.AddonBaseURL = v
		keys = append(keys, KeyAddonBaseURL)
	}
	if v := os.Getenv(LOGLevel); v != "" {
		o.LogLevel = v
		keys = append(keys, KeyLogLevel)
	}
	if v := os.Getenv(EpornerAPIURL); v != "" {
		o.EpornerAPIURL = v
		keys = append(keys, KeyEpornerAPIURL)
	}
	if v := os.Getenv(EmbedBaseURL); v != "" {
		o.EmbedBaseURL = v
		keys = append(keys, KeyEmbedBaseURL)
	}
	if v := os.Getenv(RealDebridAPIURL); v != "" {
		o.RealDebridAPIURL = v
		keys = append(keys, KeyRealDebridAPIURL)
	}
	if v := os.Getenv(QualityPreferenceOrder); v != "" {
		if order := SplitList(v); len(order) > 0 {
			o.QualityPreferenceOrder = order
			keys = append(keys, KeyQualityPreferenceOrder)
		}
	}
	if n, ok := lookupInt(RequestTimeoutMs); ok {
		o.RequestTimeoutMs = n
		keys = append(keys, KeyRequestTimeoutMs)
	}
	if n, ok := lookupInt(MaxPollingAttempts); ok {
		o.MaxPollingAttempts = n
		keys = append(keys, KeyMaxPollingAttempts)
	}
	if n, ok := lookupInt(PollIntervalMs); ok {
		o.PollIntervalMs = n
		keys = append(keys, KeyPollIntervalMs)
	}
	if n, ok := lookupInt(CatalogPageSize); ok {
		o.CatalogPageSize = n
		keys = append(keys, KeyCatalogPageSize)
	}
	if n, ok := lookupInt(CatalogCacheTTLSeconds); ok {
		o.CatalogCacheTTLSeconds = n
		keys = append(keys, KeyCatalogCacheTTL)
	}

	return o, keys
}

// OverrideKeys returns the config JSON keys that have environment overrides set.
func OverrideKeys() []string {
	_, keys := ReadConfigOverrides()
	return keys
}

// SplitList splits a comma separated value, trimming blanks and dropping empty entries.
func SplitList(v string) []string {
	parts := lo.Map(strings.Split(v, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(parts)
}

func lookupInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
