// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config holding defaults.
// - Load(ctx) layers file and environment on top of those defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver is either "sqlite" or "postgres".
	DBDriver string `koanf:"db_driver"`
	// DBDSN is a file path (sqlite) or a connection URL (postgres).
	DBDSN string `koanf:"db_dsn"`

	// WriterQueueSize bounds the pending write commands before callers get backpressure.
	WriterQueueSize int `koanf:"writer_queue_size"`
	// IdempotencyCacheSize bounds remembered Idempotency-Key values.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// DefaultHistoryLimit applies when /matches is called without a limit.
	DefaultHistoryLimit int `koanf:"default_history_limit"`
	// MaxHistoryLimit caps GET /matches?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// RateLimitRPS and RateLimitBurst configure the per-client limiter on writes.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// DefaultSeason seeds the current season when the store has none.
	DefaultSeason int `koanf:"default_season"`
}

// New returns a Config filled with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		DBDriver:             DriverSQLite,
		DBDSN:                "rally.db",
		WriterQueueSize:      256,
		IdempotencyCacheSize: 10_000,
		DefaultHistoryLimit:  10,
		MaxHistoryLimit:      100,
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		DefaultSeason:        1,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != DriverSQLite && c.DBDriver != DriverPostgres:
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	case strings.TrimSpace(c.DBDSN) == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.WriterQueueSize < 1:
		return fmt.Errorf("%w: writer_queue_size must be positive", ErrInvalidConfig)
	case c.DefaultHistoryLimit < 1 || c.MaxHistoryLimit < c.DefaultHistoryLimit:
		return fmt.Errorf("%w: history limits must satisfy 1 <= default <= max", ErrInvalidConfig)
	case c.RateLimitRPS <= 0 || c.RateLimitBurst < 1:
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	case c.DefaultSeason < 1:
		return fmt.Errorf("%w: default_season must be >= 1", ErrInvalidConfig)
	}
	return nil
}
