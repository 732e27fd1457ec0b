package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/JonMunkholm/combokiosk/internal/combo"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
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

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

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

	// Cache validation
	if c.Redis.URL != "" && c.Redis.TTL <= 0 {
		errs = append(errs, "CATALOG_CACHE_TTL must be positive when REDIS_URL is set")
	}

	// Sync validation
	if c.Sync.SourcePath != "" && c.Sync.SourceQuery != "" {
		errs = append(errs, "SYNC_SOURCE_PATH and SYNC_SOURCE_QUERY are mutually exclusive")
	}
	if c.Sync.ProductsPath != "" && c.Sync.ProductsQuery != "" {
		errs = append(errs, "SYNC_PRODUCTS_PATH and SYNC_PRODUCTS_QUERY are mutually exclusive")
	}
	if c.Sync.ChunkSize <= 0 {
		errs = append(errs, "SYNC_CHUNK_SIZE must be positive")
	}
	if c.Sync.Interval < 0 {
		errs = append(errs, "SYNC_INTERVAL must be non-negative")
	}
	if c.Sync.Interval > 0 && !c.Sync.HasSource() {
		errs = append(errs, "SYNC_INTERVAL is set but neither SYNC_SOURCE_PATH nor SYNC_SOURCE_QUERY is")
	}
	if c.Sync.Timeout <= 0 {
		errs = append(errs, "SYNC_TIMEOUT must be positive")
	}
	if c.Sync.MaxWaitTime <= 0 {
		errs = append(errs, "SYNC_MAX_WAIT_TIME must be positive")
	}
	if c.Sync.MaxUploadSize <= 0 {
		errs = append(errs, "SYNC_MAX_UPLOAD_SIZE must be positive")
	}

	// Session validation
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, "SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, "SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		errs = append(errs, "SESSION_MAX must be positive")
	}

	// Ordering validation
	if c.Ordering.BranchID < 0 {
		errs = append(errs, "ORDER_BRANCH_ID must be non-negative")
	}
	if _, ok := combo.ParseChannel(c.Ordering.Channel); !ok {
		errs = append(errs, fmt.Sprintf("ORDER_CHANNEL (%q) must be one of: takeout, delivery", c.Ordering.Channel))
	}
	if _, ok := combo.ParseCurrency(c.Ordering.Currency); !ok {
		errs = append(errs, fmt.Sprintf("ORDER_CURRENCY (%q) must be one of: TL, USD, EUR, GBP", c.Ordering.Currency))
	}
	if _, err := language.Parse(c.Ordering.Language); err != nil {
		errs = append(errs, fmt.Sprintf("DEFAULT_LANGUAGE (%q) is not a valid language tag", c.Ordering.Language))
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

// String returns a safe string representation of the config for logging.
// Connection strings are masked; source queries are reported by presence only.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Redis: {Enabled: %v, TTL: %s}, ", c.Redis.URL != "", c.Redis.TTL))
	b.WriteString(fmt.Sprintf("Sync: {SourcePath: %q, SourceQuery: %v, ChunkSize: %d, Atomic: %v, Interval: %s}, ",
		c.Sync.SourcePath, c.Sync.SourceQuery != "", c.Sync.ChunkSize, c.Sync.Atomic, c.Sync.Interval))
	b.WriteString(fmt.Sprintf("Ordering: {BranchID: %d, Channel: %q, Currency: %q, Language: %q}, ",
		c.Ordering.BranchID, c.Ordering.Channel, c.Ordering.Currency, c.Ordering.Language))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
