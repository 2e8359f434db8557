// Package config provides configuration management for schemareg.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unbywyd/schemareg/internal/loader"
)

// Config represents the schemareg configuration.
type Config struct {
	Schemas   SchemasConfig   `yaml:"schemas"`
	Duplicate DuplicateConfig `yaml:"duplicate_detection"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SchemasConfig controls schema file discovery.
type SchemasConfig struct {
	Dir     string `yaml:"dir"`     // root directory for schema definition files
	Pattern string `yaml:"pattern"` // doublestar glob relative to dir
}

// DuplicateConfig controls structural duplicate detection. Detection is a
// linear scan per registered schema, so it is disabled unless asked for.
type DuplicateConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig represents logging configuration. When File is set, log
// output goes to a rotating file instead of stdout.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig represents the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// WatchConfig controls file watching for the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DebounceDuration returns the parsed watch debounce.
func (c WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Schemas: SchemasConfig{
			Dir:     "schemas",
			Pattern: loader.DefaultPattern,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Address: ":9108",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCHEMAREG_SCHEMAS_DIR"); v != "" {
		c.Schemas.Dir = v
	}
	if v := os.Getenv("SCHEMAREG_SCHEMAS_PATTERN"); v != "" {
		c.Schemas.Pattern = v
	}
	if v := os.Getenv("SCHEMAREG_DUPLICATE_DETECTION"); v != "" {
		c.Duplicate.Enabled = isTruthy(v)
	}
	if v := os.Getenv("SCHEMAREG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCHEMAREG_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SCHEMAREG_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("SCHEMAREG_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = isTruthy(v)
	}
	if v := os.Getenv("SCHEMAREG_METRICS_ADDRESS"); v != "" {
		c.Metrics.Address = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be json or text, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics enabled but no address configured")
	}
	return nil
}

func isTruthy(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}
