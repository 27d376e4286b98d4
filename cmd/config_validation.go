package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// minSecretLength matches the minimum HS256 key size accepted by library/jwt.
const minSecretLength = 16

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateAuthConfig(get, &validationErrs)
	validateDriveConfig(get, &validationErrs)
	validateMetadataConfig(get, &validationErrs)
	validateBlobConfig(get, &validationErrs)
	validateRedisConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateAuthConfig validates the session token secret.
func validateAuthConfig(get configGetter, errs *[]string) {
	raw := get("settings.secret")
	if raw == nil {
		appendValidationError(errs, "settings.secret is required")
		return
	}

	secret, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "settings.secret must be a string")
		return
	}
	if len(secret) < minSecretLength {
		appendValidationError(errs, "settings.secret must be at least %d bytes", minSecretLength)
	}

	validateOptionalStringNonEmpty(get, "settings.jwt.issuer", errs)
}

// validateDriveConfig validates quota, upload and listing limits.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateDriveConfig(get configGetter, errs *[]string) {
	validateOptionalInt64Min(get, "settings.drive.quota_cap_bytes", 1, errs)
	validateOptionalBool(get, "settings.drive.enforce_quota", errs)
	validateOptionalInt64Min(get, "settings.drive.max_upload_bytes", 1, errs)
	validateOptionalIntMin(get, "settings.drive.max_upload_files", 1, errs)
	validateOptionalIntMin(get, "settings.drive.upload_concurrency", 1, errs)
	validateOptionalInt64Min(get, "settings.drive.list_limit_max", 1, errs)
	validateOptionalBool(get, "settings.drive.cache.enabled", errs)
	validateOptionalStringNonEmpty(get, "settings.drive.cache.prefix", errs)
	validateOptionalIntMin(get, "settings.drive.cache.ttl_seconds", 1, errs)
	validateOptionalIntMin(get, "settings.drive.reconcile.grace_seconds", 0, errs)

	validateUploadLimitRelations(get, errs)
	validateThrottleConfig(get, errs)
}

// validateThrottleConfig requires positive rates when upload throttling is on.
func validateThrottleConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.drive.throttle.enabled", errs)
	validateOptionalIntMin(get, "settings.drive.throttle.user_idle_seconds", 0, errs)
	if enabled, _ := parseStrictBool(get("settings.drive.throttle.enabled")); !enabled {
		return
	}

	for _, key := range []string{
		"settings.drive.throttle.total_per_sec",
		"settings.drive.throttle.total_burst",
		"settings.drive.throttle.user_per_sec",
		"settings.drive.throttle.user_burst",
	} {
		if get(key) == nil {
			appendValidationError(errs, "%s is required", key)
			continue
		}
		validateOptionalIntMin(get, key, 1, errs)
	}
}

// validateUploadLimitRelations rejects a single-file limit larger than the whole quota.
func validateUploadLimitRelations(get configGetter, errs *[]string) {
	rawQuota, rawUpload := get("settings.drive.quota_cap_bytes"), get("settings.drive.max_upload_bytes")
	if rawQuota == nil || rawUpload == nil {
		return
	}

	quota, quotaErr := parseStrictInt64(rawQuota)
	upload, uploadErr := parseStrictInt64(rawUpload)
	if quotaErr != nil || uploadErr != nil {
		return
	}
	if upload > quota {
		appendValidationError(errs, "settings.drive.max_upload_bytes must be <= settings.drive.quota_cap_bytes")
	}
}

// validateMetadataConfig validates the file metadata backend.
func validateMetadataConfig(get configGetter, errs *[]string) {
	backend := validateOptionalEnum(get, "settings.drive.metadata.backend", []string{backendMongo, backendMemory}, errs)
	if backend != "" && backend != backendMongo {
		return
	}

	validateRequiredHost(get, "settings.db.mongo.addr", errs)
	validateRequiredStringNonEmpty(get, "settings.db.mongo.db", errs)
}

// validateBlobConfig validates the blob store backend.
func validateBlobConfig(get configGetter, errs *[]string) {
	backend := validateOptionalEnum(get, "settings.drive.blob.backend", []string{backendMinio, backendMemory}, errs)
	if backend != "" && backend != backendMinio {
		return
	}

	validateRequiredHost(get, "settings.drive.blob.endpoint", errs)
	validateRequiredStringNonEmpty(get, "settings.drive.blob.bucket", errs)
	validateOptionalBool(get, "settings.drive.blob.secure", errs)
	validateOptionalStringNonEmpty(get, "settings.drive.blob.prefix", errs)
}

// validateRedisConfig validates redis-related startup configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRedisConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)

	enabled, _ := parseStrictBool(get("settings.drive.cache.enabled"))
	if enabled {
		validateRequiredHost(get, "settings.db.redis.addr", errs)
	}
}

// validateWebConfig validates the HTTP surface toggles.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.mcp.enabled", errs)

	raw := get("settings.web.cors_domains")
	if raw == nil {
		return
	}
	items, ok := raw.([]any)
	if !ok {
		if _, isStrings := raw.([]string); !isStrings {
			appendValidationError(errs, "settings.web.cors_domains must be a list of domains")
		}
		return
	}
	for i, item := range items {
		domain, err := parseStrictString(item)
		if err != nil || !isValidHost(domain) {
			appendValidationError(errs, "settings.web.cors_domains[%d] must be a bare domain", i)
		}
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalInt64Min(get configGetter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateRequiredStringNonEmpty validates a required non-empty string key.
func validateRequiredStringNonEmpty(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}
	validateOptionalStringNonEmpty(get, key, errs)
}

// validateRequiredHost validates a required host[:port] key.
func validateRequiredHost(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil || !isValidHost(value) {
		appendValidationError(errs, "%s must be a host without scheme or path", key)
	}
}

// validateOptionalEnum validates a string key against allowed values.
// It returns the normalized value, or an empty string when unset or invalid.
func validateOptionalEnum(get configGetter, key string, allowed []string, errs *[]string) string {
	raw := get(key)
	if raw == nil {
		return ""
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return ""
	}

	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	appendValidationError(errs, "%s must be one of %s", key, strings.Join(allowed, ", "))
	return ""
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
// It accepts a raw value and returns the parsed int64 and an error when parsing fails.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidHost validates a host string without scheme or path components.
// It accepts a host string and returns true when the host is syntactically acceptable.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return false
	}
	return true
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
