// Package config defines service configuration and its loading hooks.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/critic/internal/domain/model"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver is one of sqlite, postgres or memory.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the SQLite path or the Postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	// BaselineRating is assigned when a title joins a group.
	BaselineRating float64 `koanf:"baseline_rating"`

	// GroupFallback tries the other groups when a random pick is exhausted.
	GroupFallback bool `koanf:"group_fallback"`

	// DefaultPageSize and MaxPageSize bound GET /top.
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// SeedOnEmpty loads the default catalog into an empty store.
	SeedOnEmpty bool `koanf:"seed_on_empty"`

	// RandomSeed fixes group selection when non-zero.
	RandomSeed int64 `koanf:"random_seed"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// MetricsNamespace and MetricsSubsystem prefix every collector name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets replaces the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsRefreshMS is the period of the system gauge refresh.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// MetricsLabels are attached to every collector, e.g. {"env": "prod"}.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       DriverSQLite,
		StoreDSN:          "critic.db",
		BaselineRating:    model.BaselineRating,
		GroupFallback:     true,
		DefaultPageSize:   20,
		MaxPageSize:       100,
		SeedOnEmpty:       true,
		ShutdownTimeoutMS: 5000,
		MetricsNamespace:  "critic",
		MetricsSubsystem:  "engine",
		MetricsRefreshMS:  10000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BaselineRating <= 0:
		return fmt.Errorf("%w: baseline_rating must be positive", ErrInvalidConfig)
	case c.DefaultPageSize <= 0:
		return fmt.Errorf("%w: default_page_size must be positive", ErrInvalidConfig)
	case c.MaxPageSize < c.DefaultPageSize:
		return fmt.Errorf("%w: max_page_size must be at least default_page_size", ErrInvalidConfig)
	case c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must not be negative", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must increase", ErrInvalidConfig)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
