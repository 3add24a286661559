// Package config loads the importer's settings from environment variables.
// Every field has a default except the database URL, and the whole
// configuration is validated on startup so a bad setting fails fast.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/fossil-import/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout stays 0 so progress streams are not cut off.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout applies to every route except the progress stream.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. DB_URL is accepted as well.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate creates the schema on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// MaxFileSize is the largest accepted source in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the number of import runs allowed at once (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the number of rows between progress snapshots (default: 10)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"10"`

	Timeout      time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
	DraftWorkers int           `env:"IMPORT_DRAFT_WORKERS" default:"4"`
	SessionTTL   time.Duration `env:"IMPORT_SESSION_TTL" default:"1h"`

	// HistoryRetentionDays is how long import history is kept (default: 365)
	HistoryRetentionDays int           `env:"IMPORT_HISTORY_RETENTION_DAYS" default:"365"`
	HistoryCheckInterval time.Duration `env:"IMPORT_HISTORY_CHECK_INTERVAL" default:"24h"`
}

// RateLimitConfig holds per-client rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for source uploads (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	// OwnerHeader carries the collection owner of each request.
	OwnerHeader string `env:"OWNER_HEADER" default:"X-Owner-ID"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// FilePath, when set, also writes JSON logs to this file.
	FilePath string `env:"LOG_FILE"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ServiceConfig converts the import settings for core.NewService.
func (c *ImportConfig) ServiceConfig() core.ServiceConfig {
	return core.ServiceConfig{
		BatchSize:     c.BatchSize,
		MaxConcurrent: c.MaxConcurrent,
		MaxWait:       c.MaxWaitTime,
		ImportTimeout: c.Timeout,
		SessionTTL:    c.SessionTTL,
		DraftWorkers:  c.DraftWorkers,
	}
}

// Retention converts the history settings for Service.StartHistoryRetention.
func (c *ImportConfig) Retention() core.RetentionConfig {
	return core.RetentionConfig{
		RetentionDays: c.HistoryRetentionDays,
		CheckInterval: c.HistoryCheckInterval,
	}
}
