// Package config provides centralized configuration management for the kiosk
// server and the combosync CLI. It loads configuration from environment
// variables with sensible defaults and validates all settings on startup to
// fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Sync     SyncConfig
	Session  SessionConfig
	Ordering OrderingConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for kiosk requests (default: 10s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ApplySchema creates missing catalog tables on server start (default: true)
	ApplySchema bool `env:"DB_APPLY_SCHEMA" default:"true"`
}

// RedisConfig holds the catalog cache settings. An empty URL disables the cache.
type RedisConfig struct {
	// URL is a redis:// connection string (default: empty, no cache)
	URL string `env:"REDIS_URL"`

	// Prefix namespaces every cache key (default: catalog)
	Prefix string `env:"CATALOG_CACHE_PREFIX" default:"catalog"`

	// TTL bounds the life of a cached combo snapshot (default: 10m)
	TTL time.Duration `env:"CATALOG_CACHE_TTL" default:"10m"`
}

// SyncConfig holds catalog sync settings.
type SyncConfig struct {
	// SourcePath is a CSV or XLSX combo export (one of SourcePath/SourceQuery)
	SourcePath string `env:"SYNC_SOURCE_PATH"`

	// SourceQuery is SQL returning the combo export columns
	SourceQuery string `env:"SYNC_SOURCE_QUERY"`

	// ProductsPath is an optional CSV or XLSX product export
	ProductsPath string `env:"SYNC_PRODUCTS_PATH"`

	// ProductsQuery is optional SQL returning the product export columns
	ProductsQuery string `env:"SYNC_PRODUCTS_QUERY"`

	// SourceDatabaseURL is the database source queries run against
	// (default: empty, the catalog database)
	SourceDatabaseURL string `env:"SYNC_SOURCE_DATABASE_URL"`

	// ChunkSize is the number of rows per INSERT (default: 1000)
	ChunkSize int `env:"SYNC_CHUNK_SIZE" default:"1000"`

	// Atomic reloads each table in a single transaction (default: false)
	Atomic bool `env:"SYNC_ATOMIC" default:"false"`

	// Interval runs the sync periodically; 0 disables the scheduler (default: 0)
	Interval time.Duration `env:"SYNC_INTERVAL" default:"0s"`

	// Timeout is the maximum duration of one sync run (default: 10m)
	Timeout time.Duration `env:"SYNC_TIMEOUT" default:"10m"`

	// MaxWaitTime is how long a trigger waits for a running sync (default: 5s)
	MaxWaitTime time.Duration `env:"SYNC_MAX_WAIT_TIME" default:"5s"`

	// MaxUploadSize caps an export uploaded over HTTP, in bytes (default: 50MB)
	MaxUploadSize int64 `env:"SYNC_MAX_UPLOAD_SIZE" default:"52428800"`
}

// HasSource reports whether a scheduled or CLI sync has a combo source.
func (c *SyncConfig) HasSource() bool {
	return c.SourcePath != "" || c.SourceQuery != ""
}

// SessionConfig holds kiosk selection session settings.
type SessionConfig struct {
	// IdleTimeout discards a session not touched for this long (default: 30m)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"30m"`

	// SweepInterval is how often idle sessions are discarded (default: 1m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`

	// MaxSessions caps concurrently open sessions (default: 10000)
	MaxSessions int `env:"SESSION_MAX" default:"10000"`
}

// OrderingConfig holds the defaults applied when a request names none.
type OrderingConfig struct {
	// BranchID is the branch whose overrides apply (default: 0, defaults only)
	BranchID int `env:"ORDER_BRANCH_ID" default:"0"`

	// Channel is takeout or delivery (default: takeout)
	Channel string `env:"ORDER_CHANNEL" default:"takeout"`

	// Currency is TL, USD, EUR or GBP (default: TL)
	Currency string `env:"ORDER_CURRENCY" default:"TL"`

	// Language is the BCP 47 tag display names are resolved for (default: tr)
	Language string `env:"DEFAULT_LANGUAGE" default:"tr"`
}

// Pricing returns the configured channel and currency. Invalid values were
// rejected by Validate; they fall back to combo.DefaultPricing here.
func (c *OrderingConfig) Pricing() combo.Pricing {
	p := combo.DefaultPricing
	if ch, ok := combo.ParseChannel(c.Channel); ok {
		p.Channel = ch
	}
	if cur, ok := combo.ParseCurrency(c.Currency); ok {
		p.Currency = cur
	}
	return p
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
