// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package config loads and validates the Predikt server configuration.
//
// Configuration is layered with koanf: struct defaults first, then an
// optional YAML file, then PREDIKT_* environment variables. Environment
// variables use a double underscore as the section separator, so
// PREDIKT_SERVER__ADDR overrides server.addr.
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
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "PREDIKT_"

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"predikt.yaml",
	"predikt.yml",
	"/etc/predikt/predikt.yaml",
}

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Cache   CacheConfig   `koanf:"cache"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP serving surface.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is the sustained request rate per second across all
	// endpoints. Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the token-bucket burst size when rate limiting is on.
	RateBurst int `koanf:"rate_burst"`
}

// StorageConfig configures the embedded KV backend.
type StorageConfig struct {
	// Path is the root data directory. Each model gets one database
	// directory per logical table underneath it.
	Path string `koanf:"path"`

	// SyncWrites forces an fsync on every write. Slower, but a successful
	// put survives an immediate power loss.
	SyncWrites bool `koanf:"sync_writes"`
}

// CacheConfig configures the per-model feature cache.
type CacheConfig struct {
	// Capacity is the maximum number of cached feature vectors per model.
	Capacity int `koanf:"capacity"`

	// Shards is the number of independent LRU shards. Must be a power of two.
	Shards int `koanf:"shards"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a Config with all default values applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       0,
			RateBurst:       100,
		},
		Storage: StorageConfig{
			Path:       "/data/predikt",
			SyncWrites: true,
		},
		Cache: CacheConfig{
			Capacity: 100_000,
			Shards:   64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides. An empty path searches DefaultConfigPaths; a
// missing explicit path is an error, a missing default path is not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		for _, p := range DefaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKeyTransform maps PREDIKT_SERVER__READ_TIMEOUT to server.read_timeout.
func envKeyTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if c.Cache.Shards <= 0 || c.Cache.Shards&(c.Cache.Shards-1) != 0 {
		return fmt.Errorf("cache.shards must be a positive power of two, got %d", c.Cache.Shards)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %f", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be positive when rate limiting is enabled")
	}
	return nil
}
