// Package config loads the kubestats configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Version      string       `yaml:"version"`
	StorageDir   string       `yaml:"storage_dir"`
	Repositories []Repository `yaml:"repositories"`
	Scan         Scan         `yaml:"scan,omitempty"`
	Telemetry    Telemetry    `yaml:"telemetry,omitempty"`
}

// Repository is one GitOps working tree to track.
type Repository struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

// Scan tunes the scanning loop.
type Scan struct {
	Interval    time.Duration `yaml:"interval"`
	ExcludeDirs []string      `yaml:"exclude_dirs,omitempty"`
}

// Telemetry configures export of logs, traces and metrics.
type Telemetry struct {
	MetricsAddr  string `yaml:"metrics_addr"`
	OTELEndpoint string `yaml:"otel_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	LogLevel     string `yaml:"log_level"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StorageDir == "" {
		c.StorageDir = "."
	}
	if c.Scan.Interval == 0 {
		c.Scan.Interval = 5 * time.Minute
	}
	if c.Telemetry.MetricsAddr == "" {
		c.Telemetry.MetricsAddr = ":9090"
	}
	if c.Telemetry.LogLevel == "" {
		c.Telemetry.LogLevel = "info"
	}
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(c.Repositories) == 0 {
		return fmt.Errorf("at least one repository is required")
	}
	seen := make(map[string]bool, len(c.Repositories))
	for i, repo := range c.Repositories {
		if repo.ID == "" {
			return fmt.Errorf("repository %d: id is required", i)
		}
		if repo.Path == "" {
			return fmt.Errorf("repository %s: path is required", repo.ID)
		}
		if seen[repo.ID] {
			return fmt.Errorf("repository %s: duplicate id", repo.ID)
		}
		seen[repo.ID] = true
	}
	if c.Scan.Interval < time.Second {
		return fmt.Errorf("scan interval must be at least 1s")
	}
	return nil
}
