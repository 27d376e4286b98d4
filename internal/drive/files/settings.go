package files

import (
	"strconv"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
)

const (
	// DefaultQuotaCapBytes is the per-user storage allowance.
	DefaultQuotaCapBytes int64 = 2 * 1024 * 1024 * 1024
	// DefaultMaxUploadBytes bounds a single uploaded file.
	DefaultMaxUploadBytes int64 = 50 * 1024 * 1024
)

// Settings captures runtime configuration for the drive.
type Settings struct {
	QuotaCapBytes     int64
	EnforceQuota      bool
	MaxUploadBytes    int64
	MaxUploadFiles    int
	UploadConcurrency int
	ListLimitMax      int64
	Cache             CacheSettings
	ReconcileGrace    time.Duration
}

// CacheSettings configures the listing cache.
type CacheSettings struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

// ConfigGetter reads a raw value by dotted key.
type ConfigGetter func(key string) any

// LoadSettingsFromConfig reads settings.drive.* and applies safe defaults.
func LoadSettingsFromConfig() Settings {
	return LoadSettings(func(key string) any { return gconfig.S.Get(key) })
}

// LoadSettings reads settings through get and applies safe defaults.
func LoadSettings(get ConfigGetter) Settings {
	settings := Settings{
		QuotaCapBytes:     int64FromConfig(get, "settings.drive.quota_cap_bytes", DefaultQuotaCapBytes),
		EnforceQuota:      boolFromConfig(get, "settings.drive.enforce_quota", false),
		MaxUploadBytes:    int64FromConfig(get, "settings.drive.max_upload_bytes", DefaultMaxUploadBytes),
		MaxUploadFiles:    int(int64FromConfig(get, "settings.drive.max_upload_files", 20)),
		UploadConcurrency: int(int64FromConfig(get, "settings.drive.upload_concurrency", 4)),
		ListLimitMax:      int64FromConfig(get, "settings.drive.list_limit_max", 1000),
		Cache: CacheSettings{
			Enabled: boolFromConfig(get, "settings.drive.cache.enabled", false),
			Prefix:  stringFromConfig(get, "settings.drive.cache.prefix", "drive:listing"),
			TTL:     time.Duration(int64FromConfig(get, "settings.drive.cache.ttl_seconds", 60)) * time.Second,
		},
		ReconcileGrace: time.Duration(int64FromConfig(get, "settings.drive.reconcile.grace_seconds", 3600)) * time.Second,
	}

	return settings.normalized()
}

// normalized replaces out-of-range values with their defaults.
func (s Settings) normalized() Settings {
	if s.QuotaCapBytes <= 0 {
		s.QuotaCapBytes = DefaultQuotaCapBytes
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if s.MaxUploadFiles <= 0 {
		s.MaxUploadFiles = 20
	}
	if s.UploadConcurrency <= 0 {
		s.UploadConcurrency = 4
	}
	if s.ListLimitMax <= 0 {
		s.ListLimitMax = 1000
	}
	if s.Cache.TTL <= 0 {
		s.Cache.TTL = time.Minute
	}
	if s.ReconcileGrace < 0 {
		s.ReconcileGrace = time.Hour
	}

	return s
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return LoadSettings(func(string) any { return nil })
}

// int64FromConfig reads an int64 configuration value with a default fallback.
func int64FromConfig(get ConfigGetter, key string, def int64) int64 {
	switch v := get(key).(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// boolFromConfig reads a boolean configuration value with a default fallback.
func boolFromConfig(get ConfigGetter, key string, def bool) bool {
	switch v := get(key).(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// stringFromConfig reads a non-empty string configuration value.
func stringFromConfig(get ConfigGetter, key, def string) string {
	if v, ok := get(key).(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}
