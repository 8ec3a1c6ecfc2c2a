package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError is a validation failure for one configuration field.
type FieldError struct {
	Field   string // dotted path, e.g. "parser.workers"
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found by Validate.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks every field and returns a ValidationError listing all
// failures, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.DBPath) == "" {
		add("db_path", "must not be empty")
	}

	if cfg.Parser.Workers < 1 {
		add("parser.workers", "must be at least 1, got %d", cfg.Parser.Workers)
	}
	if cfg.Parser.BlockSize < 1 {
		add("parser.block_size", "must be at least 1, got %d", cfg.Parser.BlockSize)
	}

	if cfg.Loader.Workers < 1 {
		add("loader.workers", "must be at least 1, got %d", cfg.Loader.Workers)
	}
	if cfg.Loader.BatchSize < 1 {
		add("loader.batch_size", "must be at least 1, got %d", cfg.Loader.BatchSize)
	}
	if len(cfg.Loader.Extensions) == 0 {
		add("loader.extensions", "must list at least one extension")
	}
	for i, ext := range cfg.Loader.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			add(fmt.Sprintf("loader.extensions[%d]", i), "must start with '.', got %q", ext)
		}
	}

	if !contains(validLogLevels, cfg.Log.Level) {
		add("log.level", "must be one of %v, got %q", validLogLevels, cfg.Log.Level)
	}
	if !contains(validLogFormats, cfg.Log.Format) {
		add("log.format", "must be one of %v, got %q", validLogFormats, cfg.Log.Format)
	}

	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Address); err != nil {
			add("metrics.address", "invalid listen address %q: %v", cfg.Metrics.Address, err)
		}
	}

	if cfg.Watch.Debounce < 0 {
		add("watch.debounce", "must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Watch.Schedule); err != nil {
			add("watch.schedule", "invalid cron schedule %q: %v", cfg.Watch.Schedule, err)
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
