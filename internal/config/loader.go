package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.taskflow/config.json
// Project: .taskflow/config.json (relative to cwd)
func LoadDefault() (*Config, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, ProjectPath())
}

// GlobalPath returns ~/.taskflow/config.json.
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".taskflow", "config.json"), nil
}

// ProjectPath returns .taskflow/config.json relative to the working directory.
func ProjectPath() string {
	return filepath.Join(".taskflow", "config.json")
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("scheduler.max_concurrent must be at least 1, got %d", c.Scheduler.MaxConcurrent)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	if c.Journal.BufferSize < 0 {
		return fmt.Errorf("journal.buffer_size must not be negative, got %d", c.Journal.BufferSize)
	}
	return nil
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Decoding into base means only keys present in the file override earlier
// layers. Missing files are silently skipped.
func mergeConfigFile(base *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, base); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}
