// Package config holds the hostscan configuration model. Configuration is
// loaded from YAML files, validated, and handed read-only to the scanner
// and its probes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kvisle/hostscan/internal/logging"
)

const (
	configDirPerm  = 0o755
	configFilePerm = 0o644
)

var validate = validator.New()

// Config represents the complete hostscan configuration.
type Config struct {
	// Scanner configuration
	Scanner ScannerConfig `yaml:"scanner" json:"scanner"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Schedule configuration
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
}

// ScannerConfig holds the scanning engine settings shared read-only by
// every host pipeline.
type ScannerConfig struct {
	// Upper bound on concurrently active host pipelines
	MaxThreads int `yaml:"max_threads" json:"max_threads" validate:"gte=1"`

	// Timeout for a single ping probe, in milliseconds
	PingTimeoutMs int `yaml:"ping_timeout_ms" json:"ping_timeout_ms" validate:"gte=1"`

	// Number of sequential ping probes per host
	PingCount int `yaml:"ping_count" json:"ping_count" validate:"gte=1"`

	// Ports to probe, e.g. "22,80,443" or "1-1024" (empty means none)
	PortString string `yaml:"port_string" json:"port_string"`

	// Default timeout for a single port connect probe, in milliseconds
	PortTimeoutMs int `yaml:"port_timeout_ms" json:"port_timeout_ms" validate:"gte=1"`

	// Floor for the adapted port timeout, in milliseconds
	MinPortTimeoutMs int `yaml:"min_port_timeout_ms" json:"min_port_timeout_ms" validate:"gte=0"`

	// Derive the per-host port timeout from observed ping latency
	AdaptPortTimeout bool `yaml:"adapt_port_timeout" json:"adapt_port_timeout"`

	// Keep running the remaining probes for hosts that failed every ping
	ScanDeadHosts bool `yaml:"scan_dead_hosts" json:"scan_dead_hosts"`
}

// StorageConfig holds scan-history persistence settings.
type StorageConfig struct {
	// Enable persisting scan passes and per-host results
	Enabled bool `yaml:"enabled" json:"enabled"`

	// SQLite database file location
	Path string `yaml:"path" json:"path"`
}

// ScheduleConfig holds recurring-scan settings.
type ScheduleConfig struct {
	// Enable the recurring scan scheduler
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Cron expression for recurring passes (standard 5-field format)
	Cron string `yaml:"cron" json:"cron"`
}

// PingTimeout returns the per-probe ping timeout as a duration.
func (c *ScannerConfig) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutMs) * time.Millisecond
}

// PortTimeout returns the default port connect timeout as a duration.
func (c *ScannerConfig) PortTimeout() time.Duration {
	return time.Duration(c.PortTimeoutMs) * time.Millisecond
}

// MinPortTimeout returns the adaptive timeout floor as a duration.
func (c *ScannerConfig) MinPortTimeout() time.Duration {
	return time.Duration(c.MinPortTimeoutMs) * time.Millisecond
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanner: ScannerConfig{
			MaxThreads:       100,
			PingTimeoutMs:    2000,
			PingCount:        3,
			PortString:       "80,443,8080,3389,22,23,21,25,110,139,445",
			PortTimeoutMs:    500,
			MinPortTimeoutMs: 100,
			AdaptPortTimeout: true,
			ScanDeadHosts:    false,
		},
		Logging: logging.DefaultConfig(),
		Storage: StorageConfig{
			Enabled: false,
			Path:    "hostscan.db",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 * * * *",
		},
	}
}

// Load loads configuration from a file, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	validLogLevels := map[logging.LogLevel]bool{
		logging.LevelDebug: true,
		logging.LevelInfo:  true,
		logging.LevelWarn:  true,
		logging.LevelError: true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[logging.LogFormat]bool{
		logging.FormatText: true,
		logging.FormatJSON: true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required when storage is enabled")
	}

	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return fmt.Errorf("cron expression is required when scheduling is enabled")
	}

	return nil
}
