package files

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoadSettingsDefaults verifies unset keys fall back to defaults.
func TestLoadSettingsDefaults(t *testing.T) {
	s := DefaultSettings()
	require.Equal(t, DefaultQuotaCapBytes, s.QuotaCapBytes)
	require.Equal(t, int64(2*1024*1024*1024), s.QuotaCapBytes)
	require.Equal(t, DefaultMaxUploadBytes, s.MaxUploadBytes)
	require.False(t, s.EnforceQuota)
	require.False(t, s.Cache.Enabled)
	require.Equal(t, "drive:listing", s.Cache.Prefix)
	require.Equal(t, time.Minute, s.Cache.TTL)
	require.Equal(t, time.Hour, s.ReconcileGrace)
}

// TestLoadSettingsOverrides verifies configured values and string coercion.
func TestLoadSettingsOverrides(t *testing.T) {
	values := map[string]any{
		"settings.drive.quota_cap_bytes":         "1024",
		"settings.drive.enforce_quota":           true,
		"settings.drive.max_upload_bytes":        float64(512),
		"settings.drive.cache.enabled":           "true",
		"settings.drive.cache.ttl_seconds":       5,
		"settings.drive.reconcile.grace_seconds": int64(0),
		"settings.drive.list_limit_max":          -3,
	}
	s := LoadSettings(func(key string) any { return values[key] })

	require.Equal(t, int64(1024), s.QuotaCapBytes)
	require.True(t, s.EnforceQuota)
	require.Equal(t, int64(512), s.MaxUploadBytes)
	require.True(t, s.Cache.Enabled)
	require.Equal(t, 5*time.Second, s.Cache.TTL)
	require.Zero(t, s.ReconcileGrace)
	require.Equal(t, int64(1000), s.ListLimitMax)
}
