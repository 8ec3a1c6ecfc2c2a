package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDBPath   = "MTX_DB_PATH"
	EnvWorkers  = "MTX_WORKERS"
	EnvLogLevel = "MTX_LOG_LEVEL"
)

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path starts from Default.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies MTX_* variables. Unparseable values are ignored
// and left for Validate to judge the file value.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvDBPath); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv(EnvWorkers); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Parser.Workers = n
		}
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.Log.Level = strings.ToLower(val)
	}
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
