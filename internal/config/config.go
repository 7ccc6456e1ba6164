// Package config loads promptlib configuration from a YAML file with
// environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all promptlib configuration.
type Config struct {
	// DataDir is the writable directory owning the database file and logs.
	DataDir string `yaml:"data_dir"`

	// DatabaseFile is the database filename inside DataDir.
	DatabaseFile string `yaml:"database_file"`

	// Logging controls the categorized file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir:      filepath.Join(home, ".promptlib"),
		DatabaseFile: "prompt-library.db",
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = "prompt-library.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// DatabasePath returns the full path of the database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// applyEnvOverrides layers environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("PROMPTLIB_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if v := os.Getenv("PROMPTLIB_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || v == "true"
	}
	if lvl := os.Getenv("PROMPTLIB_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}
