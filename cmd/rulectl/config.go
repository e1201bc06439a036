package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// cliConfig is the rulectl configuration file.
type cliConfig struct {
	// Server is the ruletracker base URL.
	Server string `yaml:"server"`
	// Timeout bounds each API request.
	Timeout time.Duration `yaml:"timeout"`
}

func defaultConfig() *cliConfig {
	return &cliConfig{
		Server:  "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// defaultConfigPath returns ~/.config/rulectl/config.yaml, or "" when the
// user config directory is unknown.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rulectl", "config.yaml")
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (*cliConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cliConfig) validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
