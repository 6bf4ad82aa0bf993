// Package common provides shared utilities for b3notifier
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for b3notifier
type Config struct {
	Environment string        `toml:"environment"`
	API         APIConfig     `toml:"api"`
	Storage     StorageConfig `toml:"storage"`
	Updates     UpdatesConfig `toml:"updates"`
	Logging     LoggingConfig `toml:"logging"`
}

// APIConfig holds the backend REST API configuration
type APIConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"` // requests per second, 0 disables limiting
}

// GetTimeout parses and returns the timeout duration
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// StorageConfig holds configuration for the durable session store.
type StorageConfig struct {
	Backend       string `toml:"backend"` // "sqlite" or "memory"
	Path          string `toml:"path"`
	WatchInterval string `toml:"watch_interval"`
}

// GetWatchInterval returns how often the store is checked for writes made by other processes.
func (c *StorageConfig) GetWatchInterval() time.Duration {
	d, err := time.ParseDuration(c.WatchInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// UpdatesConfig holds the update-cadence polling configuration
type UpdatesConfig struct {
	Interval string `toml:"interval"`
}

// GetInterval parses and returns the polling interval
func (c *UpdatesConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"` // "console", "file"
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults.
// The API base URL has no default and must be supplied.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		API: APIConfig{
			Timeout:   "30s",
			RateLimit: 10,
		},
		Storage: StorageConfig{
			Backend:       "sqlite",
			Path:          filepath.Join(defaultDataDir(), "session.db"),
			WatchInterval: "1s",
		},
		Updates: UpdatesConfig{
			Interval: "60s",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Outputs:    []string{"file"},
			FilePath:   filepath.Join(defaultDataDir(), "logs", "b3notifier.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "b3notifier")
	}
	return ".b3notifier"
}

// LoadConfig loads configuration from files with .env and environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	applyEnvOverrides(config)

	config.API.BaseURL = strings.TrimRight(strings.TrimSpace(config.API.BaseURL), "/")
	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("B3NOTIFIER_ENV"); env != "" {
		config.Environment = env
	}

	if u := os.Getenv("B3NOTIFIER_API_BASE_URL"); u != "" {
		config.API.BaseURL = u
	}

	if t := os.Getenv("B3NOTIFIER_API_TIMEOUT"); t != "" {
		config.API.Timeout = t
	}

	if rl := os.Getenv("B3NOTIFIER_API_RATE_LIMIT"); rl != "" {
		if n, err := strconv.Atoi(rl); err == nil {
			config.API.RateLimit = n
		}
	}

	if level := os.Getenv("B3NOTIFIER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("B3NOTIFIER_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "session.db")
		config.Logging.FilePath = filepath.Join(path, "logs", "b3notifier.log")
	}

	if backend := os.Getenv("B3NOTIFIER_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
}

// ValidateRequired returns the config keys that must be set but are not.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if strings.TrimSpace(c.API.BaseURL) == "" {
		missing = append(missing, "api.base_url (B3NOTIFIER_API_BASE_URL)")
	}
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.Path == "" {
			missing = append(missing, "storage.path")
		}
	case "memory":
	default:
		missing = append(missing, fmt.Sprintf("storage.backend (unknown %q)", c.Storage.Backend))
	}
	return missing
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
