// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

// Package config holds all application configuration loaded from defaults, an
// optional YAML config file and environment variables.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config file: optional YAML file (config.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Square  SquareConfig  `koanf:"square"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Sync    SyncConfig    `koanf:"sync"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// SquareConfig holds Square API connection settings.
//
// Environment variables:
//   - SQUARE_ACCESS_TOKEN: bearer token for the Square v2 API (required)
//   - SQUARE_ENVIRONMENT: "production" or "sandbox" (default: production)
//   - SQUARE_BASE_URL: explicit base URL override (takes precedence over environment)
//   - SQUARE_API_VERSION: Square-Version header value
//   - SQUARE_LOCATION_IDS: comma-separated location IDs to sync
type SquareConfig struct {
	AccessToken string   `koanf:"access_token" validate:"required"`
	Environment string   `koanf:"environment" validate:"oneof=production sandbox"`
	BaseURL     string   `koanf:"base_url" validate:"omitempty,url"`
	APIVersion  string   `koanf:"api_version" validate:"required"`
	LocationIDs []string `koanf:"location_ids" validate:"required,min=1"`

	// RateLimit is the maximum outbound request rate in requests per second.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`

	// Timeout bounds each individual HTTP request to the Square API.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// URL returns the effective API base URL, honoring an explicit override.
func (c SquareConfig) URL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == "sandbox" {
		return "https://connect.squareupsandbox.com"
	}
	return "https://connect.squareup.com"
}

// MongoConfig holds MongoDB connection settings.
//
// Environment variables:
//   - MONGODB_URI: connection string (default: mongodb://localhost:27017)
//   - MONGODB_DATABASE: database name (default: squaredown)
//   - MONGODB_TIMEOUT: connect/ping timeout
type MongoConfig struct {
	URI      string        `koanf:"uri" validate:"required"`
	Database string        `koanf:"database" validate:"required"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SyncConfig holds periodic synchronization settings.
//
// Environment variables:
//   - SYNC_INTERVAL: delay between periodic sync runs
//   - SYNC_BATCH_SIZE: page size requested from search endpoints
//   - SYNC_RETRY_ATTEMPTS / SYNC_RETRY_DELAY: page-fetch retry policy
//   - SYNC_START_MIN: earliest timestamp ever synced (RFC3339)
type SyncConfig struct {
	Interval      time.Duration `koanf:"interval" validate:"gte=1m"`
	BatchSize     int           `koanf:"batch_size" validate:"min=1,max=1000"`
	RetryAttempts int           `koanf:"retry_attempts" validate:"min=1,max=10"`
	RetryDelay    time.Duration `koanf:"retry_delay" validate:"gt=0"`

	// StartMin is the floor for every sync window. A collection with no
	// recorded watermark starts here.
	StartMin time.Time `koanf:"start_min"`
}

// ServerConfig holds the administrative HTTP server settings.
//
// Environment variables:
//   - HTTP_HOST / HTTP_PORT: listen address
//   - HTTP_TIMEOUT: read/write timeout
//   - CORS_ORIGINS: comma-separated allowed origins
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: per-IP request throttle
type ServerConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig holds log output settings.
//
// Environment variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Square: SquareConfig{
			AccessToken: "",
			Environment: "production",
			BaseURL:     "",
			APIVersion:  "2025-01-23",
			LocationIDs: nil,
			RateLimit:   10,
			Timeout:     30 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "squaredown",
			Timeout:  10 * time.Second,
		},
		Sync: SyncConfig{
			Interval:      15 * time.Minute,
			BatchSize:     100,
			RetryAttempts: 5,
			RetryDelay:    2 * time.Second,
			StartMin:      time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
