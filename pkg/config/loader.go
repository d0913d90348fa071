package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. Primary entry point for configuration loading.
//
// Steps performed:
//  1. Load the base YAML file from path
//  2. Expand environment variables
//  3. Parse YAML into a Config
//  4. Merge an optional override file on top, if overridePath is non-empty
//  5. Apply default values
//  6. Validate all configuration
func Initialize(_ context.Context, path, overridePath string) (*Config, error) {
	log := slog.With("config_path", path)
	log.Info("loading configuration")

	cfg, err := loadYAML(path)
	if err != nil {
		return nil, newLoadError(path, err)
	}

	if overridePath != "" {
		override, err := loadYAML(overridePath)
		if err != nil {
			return nil, newLoadError(overridePath, err)
		}
		if err := mergeOverride(cfg, override); err != nil {
			return nil, fmt.Errorf("config: failed to merge override %s: %w", overridePath, err)
		}
	}

	cfg.applyDefaults()

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration loaded",
		"credentials", len(cfg.Credentials),
		"media_mask", cfg.MediaMask,
		"log_level", cfg.LogLevel)

	return cfg, nil
}

// Load is a convenience wrapper around Initialize for the common case
// of a single configuration file with no override.
func Load(path string) (*Config, error) {
	return Initialize(context.Background(), path, "")
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}
