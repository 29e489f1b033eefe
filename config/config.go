// Package config provides configuration loading and management for menulive.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete menulive configuration.
type Config struct {
	NATS      NATSConfig      `yaml:"nats"`
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Templates TemplatesConfig `yaml:"templates"`
	Log       LogConfig       `yaml:"log"`
}

// NATSConfig configures the connection to the document store.
type NATSConfig struct {
	// URL is the NATS server URL.
	URL string `yaml:"url"`
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// HTTPConfig configures the read API server.
type HTTPConfig struct {
	// Addr is the listen address (host:port).
	Addr string `yaml:"addr"`
	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RedisConfig configures the optional rendered-view cache.
type RedisConfig struct {
	// Addr enables the cache when non-empty (host:port).
	Addr string `yaml:"addr"`
	// TTL is the cache entry lifetime; entries are also invalidated on
	// every view update.
	TTL time.Duration `yaml:"ttl"`
}

// TemplatesConfig configures the template variant table.
type TemplatesConfig struct {
	// Overrides is an optional YAML file adjusting template display names
	// and keyword lists; it is watched and hot-reloaded when set.
	Overrides string `yaml:"overrides"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			ConnectTimeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "",
			TTL:  5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be positive when redis.addr is set")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.ConnectTimeout != 0 {
		c.NATS.ConnectTimeout = other.NATS.ConnectTimeout
	}

	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}
	if other.HTTP.ReadTimeout != 0 {
		c.HTTP.ReadTimeout = other.HTTP.ReadTimeout
	}
	if other.HTTP.WriteTimeout != 0 {
		c.HTTP.WriteTimeout = other.HTTP.WriteTimeout
	}

	if other.Redis.Addr != "" {
		c.Redis.Addr = other.Redis.Addr
	}
	if other.Redis.TTL != 0 {
		c.Redis.TTL = other.Redis.TTL
	}

	if other.Templates.Overrides != "" {
		c.Templates.Overrides = other.Templates.Overrides
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
