// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/vitrine/internal/recommend"
)

// DefaultConfigPaths lists the paths searched for a config file
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vitrine/config.yaml",
	"/etc/vitrine/config.yml",
}

// ConfigPathEnvVar is the environment variable for specifying config file path
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix prefixes every structured environment override.
// VITRINE_RECOMMEND__CACHE__LATENT_TTL=12h sets recommend.cache.latent_ttl.
const EnvPrefix = "VITRINE_"

// envNestingDelimiter separates config sections inside a prefixed variable.
const envNestingDelimiter = "__"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:                   "/data/vitrine.duckdb",
			MaxMemory:              "2GB",
			PreserveInsertionOrder: true,
			DemoSeed:               42,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: *recommend.DefaultConfig(),
		Optimizer: OptimizerConfig{
			Enabled:           true,
			Period:            "weekly",
			Interval:          24 * time.Hour,
			MinInteractions:   100,
			BehaviorWindow:    90 * 24 * time.Hour,
			AttributionWindow: 24 * time.Hour,
			Topic:             "recommendation.outcomes",
			BufferSize:        1024,
		},
		ModelStore: ModelStoreConfig{
			Enabled: true,
			Path:    "/data/models",
			Retain:  3,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"recommend.neural.hidden",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envAliases maps short, conventional environment variable names to config paths.
var envAliases = map[string]string{
	"http_port":       "server.port",
	"http_host":       "server.host",
	"http_timeout":    "server.timeout",
	"environment":     "server.environment",
	"cors_origins":    "server.cors_origins",
	"duckdb_path":     "database.path",
	"duckdb_max_mem":  "database.max_memory",
	"seed_demo_data":  "database.seed_demo_data",
	"log_level":       "logging.level",
	"log_format":      "logging.format",
	"log_caller":      "logging.caller",
	"model_store_dir": "model_store.path",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - VITRINE_SERVER__PORT -> server.port
//   - VITRINE_RECOMMEND__WEIGHTS__CONTENT -> recommend.weights.content
//   - VITRINE_OPTIMIZER__MIN_INTERACTIONS -> optimizer.min_interactions
//   - HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
//
// Unrelated variables map to "" and are skipped.
func envTransformFunc(key string) string {
	if strings.HasPrefix(key, EnvPrefix) {
		rest := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if rest == "" {
			return ""
		}
		return strings.ReplaceAll(rest, envNestingDelimiter, ".")
	}

	if mapped, ok := envAliases[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
