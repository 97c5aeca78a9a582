// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and the environment on top of the defaults.
// - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"fmt"

	"github.com/okian/vendorhub/internal/storage/memmgr"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataPath is the store data file. Empty keeps the store in memory and
	// loses it on exit.
	DataPath string `koanf:"data_path"`

	// BucketPages sets the region growth unit, in 64 KiB pages, for a newly
	// created data file. Existing files keep the value they were created with.
	BucketPages int `koanf:"bucket_pages"`

	// SyncWrites flushes the data file after every committed write.
	SyncWrites bool `koanf:"sync_writes"`

	// QueueSize bounds the pending write queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// RateLimitRPS and RateLimitBurst throttle write requests. Zero RPS
	// disables throttling.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// OTLPEndpoint is the OTLP/HTTP collector (host:port). Empty disables
	// tracing export.
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`

	// ServiceName is reported as the tracing resource name.
	ServiceName string `koanf:"service_name"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		DataPath:       "",
		BucketPages:    16,
		SyncWrites:     false,
		QueueSize:      1024,
		DedupeSize:     50_000,
		RateLimitRPS:   0,
		RateLimitBurst: 100,
		OTLPInsecure:   true,
		ServiceName:    "vendorhub",
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BucketPages <= 0 || c.BucketPages > memmgr.MaxBucketPages:
		return fmt.Errorf("%w: bucket_pages must be in [1, %d], got %d", ErrInvalidConfig, memmgr.MaxBucketPages, c.BucketPages)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative, got %g", ErrInvalidConfig, c.RateLimitRPS)
	case c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate_limit_burst must not be negative, got %d", ErrInvalidConfig, c.RateLimitBurst)
	}
	return nil
}
