// Package config provides centralized configuration management for the service.
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
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Import     ImportConfig
	Extraction ExtractionConfig
	Dedupe     DedupeConfig
	Rules      RulesConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Retention  RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"90s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout must leave room for a robots.txt check plus extraction (default: 75s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"75s"`
}

// DatabaseConfig holds database connection settings.
// An empty URL runs the service on in-memory stores.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies the embedded schema on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// RedisConfig holds the optional robots.txt decision cache connection.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// ImportConfig holds upload gate and job settings.
type ImportConfig struct {
	// MaxFileSize is the maximum upload size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// AllowedExtensions is a comma-separated list including the leading dot
	AllowedExtensions []string `env:"IMPORT_ALLOWED_EXTENSIONS" default:".csv"`

	// MaxConcurrent is the maximum number of jobs running at once (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWait is how long an import waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"IMPORT_MAX_WAIT" default:"30s"`

	FileReadTimeout time.Duration `env:"IMPORT_FILE_READ_TIMEOUT" default:"30s"`
}

// ExtractionConfig holds URL import settings.
type ExtractionConfig struct {
	// Endpoint of the extraction service. URL imports are disabled when empty.
	Endpoint string `env:"EXTRACTION_ENDPOINT"`
	APIKey   string `env:"EXTRACTION_API_KEY"`

	Timeout        time.Duration `env:"EXTRACTION_TIMEOUT" default:"45s"`
	RobotsTimeout  time.Duration `env:"EXTRACTION_ROBOTS_TIMEOUT" default:"10s"`
	RobotsCacheTTL time.Duration `env:"EXTRACTION_ROBOTS_CACHE_TTL" default:"1h"`

	// BlockedDomains rejects these hosts and their subdomains
	BlockedDomains []string `env:"EXTRACTION_BLOCKED_DOMAINS"`

	UserAgent string `env:"EXTRACTION_USER_AGENT" default:"ProvImport/1.0"`
}

// DedupeConfig holds duplicate detection settings.
type DedupeConfig struct {
	Enabled bool `env:"DEDUPE_ENABLED" default:"true"`

	// CandidateLimit caps the stored records compared per row (default: 200)
	CandidateLimit int `env:"DEDUPE_CANDIDATE_LIMIT" default:"200"`
}

// RulesConfig holds business rule thresholds.
type RulesConfig struct {
	LicenseWindowMonths int     `env:"RULES_LICENSE_WINDOW_MONTHS" default:"6"`
	ResidencyMinYears   float64 `env:"RULES_RESIDENCY_MIN_YEARS" default:"2"`
	ResidencyMaxYears   float64 `env:"RULES_RESIDENCY_MAX_YEARS" default:"7"`
	ConfidenceFloor     float64 `env:"RULES_CONFIDENCE_FLOOR" default:"0.6"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys accepted in the X-API-Key header
	APIKeys []string `env:"API_KEYS"`

	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// RetentionConfig controls purging of old import jobs.
type RetentionConfig struct {
	JobRetention  time.Duration `env:"RETENTION_JOB_MAX_AGE" default:"720h"`
	CheckInterval time.Duration `env:"RETENTION_CHECK_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
