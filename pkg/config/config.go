// Package config defines sniffer configuration with YAML file loading.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level sniffer configuration.
type Config struct {
	// MaxLogs bounds the in-memory capture buffer. Zero or negative
	// means store nothing.
	MaxLogs int `yaml:"maxLogs"`

	// CaptureLevel is one of "minimal", "headers-only", "full".
	CaptureLevel string `yaml:"captureLevel"`

	// MaskFields are additional field names to redact, on top of the
	// default sensitive set.
	MaskFields []string `yaml:"maskFields"`

	Persist PersistConfig `yaml:"persist"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

// PersistConfig configures file persistence.
type PersistConfig struct {
	// Enabled turns file persistence on.
	Enabled bool `yaml:"enabled"`

	// Path is the capture log file location.
	Path string `yaml:"path"`

	// WriteIntervalMs is the staleness ceiling in milliseconds.
	WriteIntervalMs int `yaml:"writeIntervalMs"`

	// WriteDebounceMs is the quiet period in milliseconds.
	WriteDebounceMs int `yaml:"writeDebounceMs"`

	// WriteBatchSize forces a flush at this many unflushed entries.
	WriteBatchSize int `yaml:"writeBatchSize"`

	// RefreshOnStartup loads the persisted file at startup.
	// Defaults to true; set to false to always start empty.
	RefreshOnStartup *bool `yaml:"refreshOnStartup"`
}

// AdminConfig configures the dashboard/admin API listener.
type AdminConfig struct {
	// Addr is the listen address for the admin API.
	Addr string `yaml:"addr"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		MaxLogs:      1000,
		CaptureLevel: "headers-only",
		Persist: PersistConfig{
			Enabled:         true,
			Path:            "api-sniffer.log.json",
			WriteIntervalMs: 5000,
			WriteDebounceMs: 100,
			WriteBatchSize:  50,
		},
		Admin: AdminConfig{
			Addr: "127.0.0.1:4040",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.CaptureLevel {
	case "minimal", "headers-only", "full":
	default:
		return fmt.Errorf("invalid captureLevel %q (want minimal, headers-only, or full)", c.CaptureLevel)
	}
	if c.Persist.Enabled && c.Persist.Path == "" {
		return fmt.Errorf("persist.path is required when persistence is enabled")
	}
	if c.Persist.WriteIntervalMs < 0 || c.Persist.WriteDebounceMs < 0 || c.Persist.WriteBatchSize < 0 {
		return fmt.Errorf("persist timings and batch size must not be negative")
	}
	return nil
}

// WriteInterval returns the staleness ceiling as a duration.
func (p PersistConfig) WriteInterval() time.Duration {
	return time.Duration(p.WriteIntervalMs) * time.Millisecond
}

// WriteDebounce returns the quiet period as a duration.
func (p PersistConfig) WriteDebounce() time.Duration {
	return time.Duration(p.WriteDebounceMs) * time.Millisecond
}

// Refresh reports whether the persisted file should be loaded at
// startup (default true).
func (p PersistConfig) Refresh() bool {
	return p.RefreshOnStartup == nil || *p.RefreshOnStartup
}
