// Package config provides centralized configuration management for the dashboard.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Upload   UploadConfig
	Dispatch DispatchConfig
	Refresh  RefreshConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// BackendConfig holds grading backend settings.
type BackendConfig struct {
	// URL is the backend root URL.
	// Supports both BACKEND_URL and API_URL env vars for compatibility
	URL string `env:"BACKEND_URL" envAlt:"API_URL" default:"http://127.0.0.1:8000"`

	// SyncTimeout bounds one audit-queue fetch (default: 10s)
	SyncTimeout time.Duration `env:"BACKEND_SYNC_TIMEOUT" default:"10s"`

	// ActionTimeout bounds simulate and resolve calls (default: 15s)
	ActionTimeout time.Duration `env:"BACKEND_ACTION_TIMEOUT" default:"15s"`

	// UploadTimeout bounds one upload call (default: 60s)
	UploadTimeout time.Duration `env:"BACKEND_UPLOAD_TIMEOUT" default:"60s"`
}

// UploadConfig holds answer-script upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted multipart body in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`
}

// DispatchConfig holds action dispatcher settings.
type DispatchConfig struct {
	// MaxConcurrent is the number of actions that may run at once (default: 1)
	MaxConcurrent int `env:"DISPATCH_MAX_CONCURRENT" default:"1"`

	// HistorySize is the number of finished actions kept in memory (default: 50)
	HistorySize int `env:"DISPATCH_HISTORY_SIZE" default:"50"`
}

// RefreshConfig holds background refresh settings.
type RefreshConfig struct {
	// Enabled controls whether the queue is re-synced periodically (default: true)
	Enabled bool `env:"REFRESH_ENABLED" default:"true"`

	// Interval is the time between background syncs (default: 30s)
	Interval time.Duration `env:"REFRESH_INTERVAL" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for action endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
