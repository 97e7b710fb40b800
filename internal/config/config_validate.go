// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/vitrine/internal/recommend/optimizer"
)

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// Validate checks that the configuration is complete and in range
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	if err := c.validateOptimizer(); err != nil {
		return err
	}

	return c.validateModelStore()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateCORS refuses wildcard origins in production
func (c *Config) validateCORS() error {
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("server.cors_origins must not contain \"*\" when environment=production")
	}
	return nil
}

// hasWildcardCORS checks if CORS origins contain a wildcard
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validateRateLimits validates rate limiting configuration
func (c *Config) validateRateLimits() error {
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("server.rate_limit_reqs must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("server.rate_limit_window must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be non-negative, got %d", c.Database.Threads)
	}
	return nil
}

// validateOptimizer validates optimizer configuration
func (c *Config) validateOptimizer() error {
	if _, err := optimizer.ParsePeriod(c.Optimizer.Period); err != nil {
		return fmt.Errorf("optimizer.period: %w", err)
	}
	if c.Optimizer.Enabled && c.Optimizer.Interval <= 0 {
		return fmt.Errorf("optimizer.interval must be positive, got %v", c.Optimizer.Interval)
	}
	if c.Optimizer.MinInteractions < 0 {
		return fmt.Errorf("optimizer.min_interactions must be non-negative, got %d", c.Optimizer.MinInteractions)
	}
	if c.Optimizer.BehaviorWindow <= 0 {
		return fmt.Errorf("optimizer.behavior_window must be positive, got %v", c.Optimizer.BehaviorWindow)
	}
	if c.Optimizer.AttributionWindow <= 0 {
		return fmt.Errorf("optimizer.attribution_window must be positive, got %v", c.Optimizer.AttributionWindow)
	}
	if c.Optimizer.Topic == "" {
		return fmt.Errorf("optimizer.topic is required")
	}
	return nil
}

// validateModelStore validates model snapshot storage
func (c *Config) validateModelStore() error {
	if !c.ModelStore.Enabled {
		return nil
	}
	if !c.ModelStore.InMemory && c.ModelStore.Path == "" {
		return fmt.Errorf("model_store.path is required unless model_store.in_memory is set")
	}
	if c.ModelStore.Retain < 1 {
		return fmt.Errorf("model_store.retain must be positive, got %d", c.ModelStore.Retain)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}
