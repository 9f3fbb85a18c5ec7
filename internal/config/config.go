// Package config loads conversion defaults from YAML files, so recurring
// runs can share settings instead of repeating command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration loaded from YAML.
type Config struct {
	Conversion struct {
		// Workers is the number of slices converted in parallel.
		Workers int `yaml:"workers"`

		// ROIName is the structure name written to and looked up in
		// RTSTRUCT files.
		ROIName string `yaml:"roiName"`

		// UsePinHole carves cavities open before tracing.
		UsePinHole bool `yaml:"usePinHole"`

		// ApproximateContours thins contours instead of keeping every
		// boundary vertex.
		ApproximateContours bool `yaml:"approximateContours"`
	} `yaml:"conversion"`

	Output struct {
		// Quiet suppresses progress output.
		Quiet bool `yaml:"quiet"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Conversion.Workers = runtime.NumCPU()
	cfg.Conversion.ROIName = "ROI-1"
	return cfg
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
