// Package config loads the mtx configuration file.
//
// Configuration is read from YAML, filled with defaults, overridden from the
// environment and validated, in that order:
//
//	cfg, err := config.Load("mtx.yaml")
//	if err != nil {
//	    return err
//	}
//
// An empty path skips the file and starts from Default. Environment variables
// MTX_DB_PATH, MTX_WORKERS and MTX_LOG_LEVEL take precedence over the file.
package config

import "time"

// Config is the root configuration.
type Config struct {
	// DBPath is the SQLite database file. A leading "~/" is expanded.
	DBPath string `yaml:"db_path"`

	Parser  ParserConfig  `yaml:"parser"`
	Loader  LoaderConfig  `yaml:"loader"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ParserConfig controls body scanning of a single file.
type ParserConfig struct {
	// Workers is the number of goroutines parsing a body. 1 scans serially.
	Workers int `yaml:"workers"`

	// BlockSize is the number of bytes handed to a worker, before newline alignment.
	BlockSize int `yaml:"block_size"`
}

// LoaderConfig controls how directories of matrices are loaded into storage.
type LoaderConfig struct {
	// Workers is the number of files parsed concurrently.
	Workers int `yaml:"workers"`

	// BatchSize is the number of entries inserted per storage call.
	BatchSize int `yaml:"batch_size"`

	// Extensions are the file suffixes picked up when walking a directory.
	Extensions []string `yaml:"extensions"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// WatchConfig controls `mtx load --watch`.
type WatchConfig struct {
	// Debounce is the quiet period after the last file event before a reload.
	Debounce time.Duration `yaml:"debounce"`
	// Schedule is an optional cron expression ("0 */6 * * *", "@every 1h")
	// for full reloads. It covers filesystems that drop change events.
	Schedule string `yaml:"schedule"`
}
