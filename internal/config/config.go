// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package config

import (
	"time"

	"github.com/tomtom215/vitrine/internal/recommend"
	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment Variables: VITRINE_ prefixed overrides plus a few short aliases
//
// Example - Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Logging    LoggingConfig    `koanf:"logging"`
	Recommend  recommend.Config `koanf:"recommend"`
	Optimizer  OptimizerConfig  `koanf:"optimizer"`
	ModelStore ModelStoreConfig `koanf:"model_store"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`          // Read/write timeout per request
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"` // Grace period for in-flight requests
	Environment     string        `koanf:"environment"`      // "development", "staging" or "production"

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // Whether to preserve insertion order (default true)
	SeedDemoData           bool   `koanf:"seed_demo_data"`           // Fill an empty catalog with synthetic data on start
	DemoSeed               int64  `koanf:"demo_seed"`                // Random seed for the synthetic data
	SkipIndexes            bool   `koanf:"skip_indexes"`             // Skip index creation (fast test setup)
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// OptimizerConfig holds the weight optimizer and outcome log settings.
type OptimizerConfig struct {
	// Enabled runs the optimizer on a schedule.
	// Default: true
	Enabled bool `koanf:"enabled"`

	// Period is the outcome window of a scheduled run: daily, weekly or monthly.
	// Default: weekly
	Period string `koanf:"period"`

	// Interval is the time between scheduled runs.
	// Default: 24h
	Interval time.Duration `koanf:"interval"`

	// MinInteractions is the number of logged interactions below which
	// weights are left alone.
	// Default: 100
	MinInteractions int `koanf:"min_interactions"`

	// BehaviorWindow is the trailing window of the behavior summaries.
	// Default: 90 days
	BehaviorWindow time.Duration `koanf:"behavior_window"`

	// AttributionWindow is how long after an impression an interaction is
	// credited to the serving algorithm.
	// Default: 24h
	AttributionWindow time.Duration `koanf:"attribution_window"`

	// Topic is the in-process topic outcome events are published on.
	// Default: recommendation.outcomes
	Topic string `koanf:"topic"`

	// BufferSize is the gochannel output buffer.
	// Default: 1024
	BufferSize int64 `koanf:"buffer_size"`
}

// ModelStoreConfig holds BadgerDB model snapshot settings.
type ModelStoreConfig struct {
	// Enabled persists trained models and restores them on start.
	// Default: true
	Enabled bool `koanf:"enabled"`

	// Path is the BadgerDB directory.
	// Default: /data/models
	Path string `koanf:"path"`

	// InMemory keeps snapshots in memory only.
	// Default: false
	InMemory bool `koanf:"in_memory"`

	// Retain is the number of snapshot generations kept per model.
	// Default: 3
	Retain int `koanf:"retain"`
}

// OptimizerSettings converts the section into optimizer parameters. The
// recommend weights are the baseline effectiveness ratios apply to.
func (c *Config) OptimizerSettings() optimizer.Config {
	oc := optimizer.DefaultConfig()
	oc.Defaults = c.Recommend.Weights
	oc.MinInteractions = c.Optimizer.MinInteractions
	oc.BehaviorWindow = c.Optimizer.BehaviorWindow
	return oc
}

// Load reads configuration with the following precedence (highest wins):
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
