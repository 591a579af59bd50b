// Package config loads lastgood settings: built-in defaults, then an optional
// YAML file, then LASTGOOD_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/oriys/lastgood/internal/observability"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"LASTGOOD_REDIS_ADDR"`
	Password  string `yaml:"password" env:"LASTGOOD_REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"LASTGOOD_REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" env:"LASTGOOD_REDIS_KEY_PREFIX"`
}

// StorageConfig selects and configures the persistent backend.
// DSN is a file path for sqlite, a directory for file, a connection
// string for postgres, and unused for redis, memory and none.
type StorageConfig struct {
	Driver string      `yaml:"driver" env:"LASTGOOD_STORAGE_DRIVER"`
	DSN    string      `yaml:"dsn" env:"LASTGOOD_STORAGE_DSN"`
	Redis  RedisConfig `yaml:"redis"`
}

// StoreConfig holds fallback store settings
type StoreConfig struct {
	Key         string        `yaml:"key" env:"LASTGOOD_STORAGE_KEY"`
	FreshWindow time.Duration `yaml:"fresh_window" env:"LASTGOOD_FRESH_WINDOW"`
}

// LoggingConfig holds operational logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LASTGOOD_LOG_LEVEL"`
	Format string `yaml:"format" env:"LASTGOOD_LOG_FORMAT"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// ServerConfig holds HTTP inspector settings
type ServerConfig struct {
	Addr string `yaml:"addr" env:"LASTGOOD_HTTP_ADDR"`
}

// Config is the central configuration struct embedding all component configs
type Config struct {
	Storage StorageConfig        `yaml:"storage"`
	Store   StoreConfig          `yaml:"store"`
	Logging LoggingConfig        `yaml:"logging"`
	Tracing observability.Config `yaml:"tracing"`
	Metrics MetricsConfig        `yaml:"metrics"`
	Server  ServerConfig         `yaml:"server"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "lastgood.db",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "lastgood:",
			},
		},
		Store: StoreConfig{
			Key:         "fallback_data",
			FreshWindow: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.Config{
			Exporter:    "otlp-http",
			Endpoint:    "localhost:4318",
			ServiceName: "lastgood",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Namespace: "lastgood",
		},
		Server: ServerConfig{
			Addr: ":8089",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config
func LoadFromEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads path (when non-empty) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the store cannot run with.
func (c *Config) Validate() error {
	if c.Store.Key == "" {
		return fmt.Errorf("store key cannot be empty")
	}
	if c.Store.FreshWindow <= 0 {
		return fmt.Errorf("fresh window must be positive, got %s", c.Store.FreshWindow)
	}
	switch c.Storage.Driver {
	case "", "none", "memory", "file", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
