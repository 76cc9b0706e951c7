// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validEnv sets the minimal environment for a loadable configuration.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SQUARE_ACCESS_TOKEN", "sq0atp-test-token")
	t.Setenv("SQUARE_LOCATION_IDS", "L1,L2")
}

func TestLoadDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Square.Environment != "production" {
		t.Errorf("expected production environment, got %s", cfg.Square.Environment)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Errorf("unexpected default mongo URI: %s", cfg.Mongo.URI)
	}
	if cfg.Mongo.Database != "squaredown" {
		t.Errorf("unexpected default database: %s", cfg.Mongo.Database)
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("unexpected default sync interval: %v", cfg.Sync.Interval)
	}
	if got, want := cfg.Sync.StartMin, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("unexpected default start min: %v", got)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected default port: %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("SQUARE_ENVIRONMENT", "sandbox")
	t.Setenv("MONGODB_DATABASE", "brewhouse")
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("SYNC_BATCH_SIZE", "250")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Square.Environment != "sandbox" {
		t.Errorf("expected sandbox, got %s", cfg.Square.Environment)
	}
	if cfg.Mongo.Database != "brewhouse" {
		t.Errorf("expected brewhouse, got %s", cfg.Mongo.Database)
	}
	if cfg.Sync.Interval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Sync.BatchSize != 250 {
		t.Errorf("expected batch size 250, got %d", cfg.Sync.BatchSize)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
}

func TestLoadLocationIDsFromEnv(t *testing.T) {
	validEnv(t)
	t.Setenv("SQUARE_LOCATION_IDS", "LAB1, LAB2 ,LAB3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Square.LocationIDs) != 3 {
		t.Fatalf("expected 3 location IDs, got %v", cfg.Square.LocationIDs)
	}
	if cfg.Square.LocationIDs[1] != "LAB2" {
		t.Errorf("expected trimmed LAB2, got %q", cfg.Square.LocationIDs[1])
	}
}

func TestLoadConfigFile(t *testing.T) {
	validEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("mongo:\n  database: filedb\nsync:\n  batch_size: 42\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Mongo.Database != "filedb" {
		t.Errorf("expected filedb from config file, got %s", cfg.Mongo.Database)
	}
	if cfg.Sync.BatchSize != 42 {
		t.Errorf("expected batch size 42 from config file, got %d", cfg.Sync.BatchSize)
	}
}

func TestLoadMissingAccessToken(t *testing.T) {
	t.Setenv("SQUARE_LOCATION_IDS", "L1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for missing access token")
	}
	if !strings.Contains(err.Error(), "AccessToken") {
		t.Errorf("expected AccessToken in error, got: %v", err)
	}
}

func TestLoadInvalidEnvironment(t *testing.T) {
	validEnv(t)
	t.Setenv("SQUARE_ENVIRONMENT", "staging")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for invalid environment")
	}
}

func TestValidateMongoURI(t *testing.T) {
	validEnv(t)
	t.Setenv("MONGODB_URI", "postgres://nope")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for non-mongodb URI")
	}
	if !strings.Contains(err.Error(), "MONGODB_URI") {
		t.Errorf("expected MONGODB_URI in error, got: %v", err)
	}
}

func TestSquareURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  SquareConfig
		want string
	}{
		{"production", SquareConfig{Environment: "production"}, "https://connect.squareup.com"},
		{"sandbox", SquareConfig{Environment: "sandbox"}, "https://connect.squareupsandbox.com"},
		{"override", SquareConfig{Environment: "production", BaseURL: "http://localhost:9191"}, "http://localhost:9191"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.URL(); got != tt.want {
				t.Errorf("URL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnvTransformFuncUnmappedDropped(t *testing.T) {
	t.Parallel()

	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("expected unmapped env var to be dropped, got %q", got)
	}
	if got := envTransformFunc("SQUARE_ACCESS_TOKEN"); got != "square.access_token" {
		t.Errorf("unexpected mapping: %q", got)
	}
}
