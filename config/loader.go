package config

import (
	"log/slog"
	"os"
)

const (
	// ProjectConfigFile is the config file looked up in the working
	// directory when no explicit path is given.
	ProjectConfigFile = "menulive.yaml"

	// Environment overrides, applied after file loading.
	envConfigPath = "MENULIVE_CONFIG"
	envNATSURL    = "MENULIVE_NATS_URL"
	envHTTPAddr   = "MENULIVE_HTTP_ADDR"
	envRedisAddr  = "MENULIVE_REDIS_ADDR"
	envLogLevel   = "MENULIVE_LOG_LEVEL"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. Config file (explicit path, MENULIVE_CONFIG, or ./menulive.yaml)
// 3. Environment variable overrides
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	filePath := l.resolvePath(path)
	fileConfig, err := LoadFromFile(filePath)
	switch {
	case err == nil:
		l.logger.Debug("Loaded config file", slog.String("path", filePath))
		config.Merge(fileConfig)
	case path != "":
		// An explicitly named file must exist.
		return nil, err
	default:
		l.logger.Debug("No config file found, using defaults", slog.String("path", filePath))
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (l *Loader) resolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfigPath); env != "" {
		return env
	}
	return ProjectConfigFile
}

func (l *Loader) applyEnv(config *Config) {
	if v := os.Getenv(envNATSURL); v != "" {
		config.NATS.URL = v
	}
	if v := os.Getenv(envHTTPAddr); v != "" {
		config.HTTP.Addr = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		config.Redis.Addr = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		config.Log.Level = v
	}
}
