package config

import (
	"runtime"
	"time"
)

// Default values for configuration fields.
const (
	DefaultDBPath = "~/.mtx/matrices.db"

	DefaultParserWorkers   = 1
	DefaultParserBlockSize = 1 << 20

	DefaultLoaderBatchSize = 4096

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultMetricsAddress = "127.0.0.1:9464"

	DefaultWatchDebounce = 500 * time.Millisecond
)

// DefaultExtensions are the suffixes loaded from a directory.
var DefaultExtensions = []string{".mtx", ".mtx.gz"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields. Metrics.Enabled is left as found.
func ApplyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}

	if cfg.Parser.Workers == 0 {
		cfg.Parser.Workers = DefaultParserWorkers
	}
	if cfg.Parser.BlockSize == 0 {
		cfg.Parser.BlockSize = DefaultParserBlockSize
	}

	if cfg.Loader.Workers == 0 {
		cfg.Loader.Workers = runtime.NumCPU()
	}
	if cfg.Loader.BatchSize == 0 {
		cfg.Loader.BatchSize = DefaultLoaderBatchSize
	}
	if len(cfg.Loader.Extensions) == 0 {
		cfg.Loader.Extensions = append([]string(nil), DefaultExtensions...)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}
