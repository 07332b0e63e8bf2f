// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recommend.MaxFeatures != 1000 {
		t.Errorf("Recommend.MaxFeatures = %d, want 1000", cfg.Recommend.MaxFeatures)
	}
	if cfg.Recommend.MaxDocFreq != 0.8 {
		t.Errorf("Recommend.MaxDocFreq = %v, want 0.8", cfg.Recommend.MaxDocFreq)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled = false, want true by default")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MERCATUS_SERVER_PORT", "9090")
	t.Setenv("MERCATUS_LOGGING_LEVEL", "debug")
	t.Setenv("MERCATUS_CACHE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false from environment")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 7070
recommend:
  default_n: 5
  max_n: 20
database:
  path: /tmp/test.duckdb
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultN != 5 {
		t.Errorf("Recommend.DefaultN = %d, want 5", cfg.Recommend.DefaultN)
	}
	if cfg.Recommend.MaxN != 20 {
		t.Errorf("Recommend.MaxN = %d, want 20", cfg.Recommend.MaxN)
	}
	// File values merge over defaults without clobbering unrelated keys.
	if cfg.Recommend.MaxFeatures != 1000 {
		t.Errorf("Recommend.MaxFeatures = %d, want 1000", cfg.Recommend.MaxFeatures)
	}
	if cfg.Database.Path != "/tmp/test.duckdb" {
		t.Errorf("Database.Path = %q, want /tmp/test.duckdb", cfg.Database.Path)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("MERCATUS_SERVER_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want environment to win over file", cfg.Server.Port)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MERCATUS_SERVER_PORT", "server.port"},
		{"MERCATUS_RECOMMEND_MAX_FEATURES", "recommend.max_features"},
		{"MERCATUS_CACHE_TTL", "cache.ttl"},
		{"MERCATUS_EXPLAIN_API_KEY", "explain.api_key"},
		{"MERCATUS_LOGGING", "logging"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := envTransform(tt.in); got != tt.want {
				t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "default_n above max_n",
			mutate:  func(c *Config) { c.Recommend.DefaultN = 50 },
			wantErr: true,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "zero max_features",
			mutate:  func(c *Config) { c.Recommend.MaxFeatures = 0 },
			wantErr: true,
		},
		{
			name:    "max_doc_freq above one",
			mutate:  func(c *Config) { c.Recommend.MaxDocFreq = 1.5 },
			wantErr: true,
		},
		{
			name:    "non-positive train timeout",
			mutate:  func(c *Config) { c.Recommend.TrainTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "enabled cache without ttl",
			mutate:  func(c *Config) { c.Cache.TTL = 0 },
			wantErr: true,
		},
		{
			name: "disabled cache allows zero ttl",
			mutate: func(c *Config) {
				c.Cache.Enabled = false
				c.Cache.TTL = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
