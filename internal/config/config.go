// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

// Package config loads and validates the Mercatus configuration.
//
// Configuration is layered with Koanf v2:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority, MERCATUS_ prefix)
//
// Environment variable names map to koanf paths by stripping the
// prefix, lowercasing and replacing the first underscore-separated
// segment with a section: MERCATUS_SERVER_PORT -> server.port.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mercatus/config.yaml",
	"/etc/mercatus/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "MERCATUS_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them
// to koanf paths.
const envPrefix = "MERCATUS_"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Explain   ExplainConfig   `koanf:"explain"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// Timeout bounds request read and write.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is the per-IP request budget per minute. 0 disables
	// rate limiting.
	RateLimit int `koanf:"rate_limit" validate:"min=0"`
}

// DatabaseConfig holds catalog storage settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty uses an in-memory
	// database.
	Path string `koanf:"path"`

	// SeedDemoData loads the built-in demo catalog when the products
	// table is empty.
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// SnapshotPath is where the trained model is persisted. Empty
	// disables persistence.
	SnapshotPath string `koanf:"snapshot_path"`

	// MaxFeatures caps the vocabulary size.
	MaxFeatures int `koanf:"max_features" validate:"min=1"`

	// MaxDocFreq drops terms appearing in more than this fraction of
	// documents.
	MaxDocFreq float64 `koanf:"max_doc_freq" validate:"gt=0,lte=1"`

	// DefaultN is the recommendation count when the caller does not
	// specify one.
	DefaultN int `koanf:"default_n" validate:"min=1"`

	// MaxN caps the recommendation count a caller may request.
	MaxN int `koanf:"max_n" validate:"min=1"`

	// TrainOnStartup fits the model eagerly at boot instead of on the
	// first query.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// TrainInterval retrains the model periodically. 0 disables
	// periodic retraining.
	TrainInterval time.Duration `koanf:"train_interval"`

	// TrainTimeout bounds a single training run.
	TrainTimeout time.Duration `koanf:"train_timeout"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	// Enabled toggles the response cache globally.
	Enabled bool `koanf:"enabled"`

	// TTL is the default entry lifetime.
	TTL time.Duration `koanf:"ttl"`
}

// ExplainConfig holds recommendation explanation settings.
type ExplainConfig struct {
	// APIKey enables LLM-generated explanations when set. Empty falls
	// back to template explanations.
	APIKey string `koanf:"api_key"`

	// Model is the chat completion model.
	Model string `koanf:"model"`

	// BaseURL overrides the API endpoint, for OpenAI-compatible
	// providers.
	BaseURL string `koanf:"base_url"`

	// Timeout bounds a single explanation request.
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

// defaultConfig returns a Config with all defaults applied. Defaults
// are loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			Timeout:   30 * time.Second,
			RateLimit: 120,
		},
		Database: DatabaseConfig{
			Path:         "/data/mercatus.duckdb",
			SeedDemoData: false,
		},
		Recommend: RecommendConfig{
			SnapshotPath:   "/data/model.snapshot",
			MaxFeatures:    1000,
			MaxDocFreq:     0.8,
			DefaultN:       3,
			MaxN:           10,
			TrainOnStartup: true,
			TrainInterval:  0,
			TrainTimeout:   5 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Explain: ExplainConfig{
			Model:   "gpt-4o-mini",
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
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

// envTransform maps MERCATUS_SERVER_PORT to server.port. The first
// underscore separates the section from the key; remaining underscores
// belong to the key itself.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Recommend.DefaultN > c.Recommend.MaxN {
		return fmt.Errorf("recommend.default_n (%d) must not exceed recommend.max_n (%d)",
			c.Recommend.DefaultN, c.Recommend.MaxN)
	}
	if c.Recommend.TrainTimeout <= 0 {
		return fmt.Errorf("recommend.train_timeout must be positive")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled")
	}
	return nil
}
