package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadWith(os.LookupEnv)
}

// LoadWith is Load with a custom variable source.
func LoadWith(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from the variable source.
func loadStruct(v reflect.Value, lookup LookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		envAlt := field.Tag.Get("envAlt")
		required := field.Tag.Get("required") == "true"

		// Primary variable first, then the alternate name
		value := lookupTrimmed(lookup, envName)
		if value == "" && envAlt != "" {
			value = lookupTrimmed(lookup, envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

func lookupTrimmed(lookup LookupFunc, key string) string {
	v, ok := lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var result []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Backend validation
	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("BACKEND_URL (%q) must be an absolute http(s) URL", redactURL(c.Backend.URL)))
	}
	if c.Backend.SyncTimeout <= 0 {
		errs = append(errs, "BACKEND_SYNC_TIMEOUT must be positive")
	}
	if c.Backend.ActionTimeout <= 0 {
		errs = append(errs, "BACKEND_ACTION_TIMEOUT must be positive")
	}
	if c.Backend.UploadTimeout <= 0 {
		errs = append(errs, "BACKEND_UPLOAD_TIMEOUT must be positive")
	}

	// A waiting action request holds the call and its re-sync.
	if c.Server.RequestTimeout > 0 {
		budget := max(c.Backend.UploadTimeout, c.Backend.ActionTimeout) + c.Backend.SyncTimeout
		if c.Server.RequestTimeout <= budget {
			errs = append(errs, fmt.Sprintf("SERVER_REQUEST_TIMEOUT (%s) must exceed the slowest backend call plus BACKEND_SYNC_TIMEOUT (%s)", c.Server.RequestTimeout, budget))
		}
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}

	// Dispatch validation
	if c.Dispatch.MaxConcurrent <= 0 {
		errs = append(errs, "DISPATCH_MAX_CONCURRENT must be positive")
	}
	if c.Dispatch.HistorySize <= 0 {
		errs = append(errs, "DISPATCH_HISTORY_SIZE must be positive")
	}

	// Refresh validation
	if c.Refresh.Enabled && c.Refresh.Interval < time.Second {
		errs = append(errs, "REFRESH_INTERVAL must be at least 1s when refresh is enabled")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Security validation
	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil && net.ParseIP(cidr) == nil {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not a CIDR or IP", cidr))
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// redactURL hides any password embedded in a URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[INVALID]"
	}
	return u.Redacted()
}

// String returns a safe string representation of the config for logging.
// Credentials embedded in the backend URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Backend: {URL: %q, SyncTimeout: %s, ActionTimeout: %s, UploadTimeout: %s}, ",
		redactURL(c.Backend.URL), c.Backend.SyncTimeout, c.Backend.ActionTimeout, c.Backend.UploadTimeout)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d}, ", c.Upload.MaxFileSize)
	fmt.Fprintf(&b, "Dispatch: {MaxConcurrent: %d, HistorySize: %d}, ",
		c.Dispatch.MaxConcurrent, c.Dispatch.HistorySize)
	fmt.Fprintf(&b, "Refresh: {Enabled: %v, Interval: %s}, ", c.Refresh.Enabled, c.Refresh.Interval)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
