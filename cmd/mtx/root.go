package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tatami-inc/eminem-sub000/internal/config"
	"github.com/tatami-inc/eminem-sub000/internal/metrics"
	"github.com/tatami-inc/eminem-sub000/internal/storage"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "mtx",
		Short: "Matrix Market parser, loader and MCP server",
		Long: `mtx parses Matrix Market exchange files (.mtx, optionally gzip or zlib
compressed), loads them into a SQLite database and serves that database to
MCP clients.

Configuration is read from --config (YAML) and the environment variables
MTX_DB_PATH, MTX_WORKERS and MTX_LOG_LEVEL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(versionText())

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newInspectCmd(opts),
		newScanCmd(opts),
		newLoadCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func versionText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mtx %s\n", version)
	fmt.Fprintf(&sb, "Build Time: %s\n", buildTime)
	fmt.Fprintf(&sb, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(&sb, "SQLite Driver: %s\n", storage.DriverName)
	fmt.Fprintf(&sb, "Go Version: %s\n", runtime.Version())
	return sb.String()
}

// load reads the configuration and builds the stderr logger
func (o *globalOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = strings.ToLower(o.logLevel)
		if err := config.Validate(cfg); err != nil {
			return nil, nil, err
		}
	}
	return cfg, newLogger(cfg.Log, os.Stderr), nil
}

// newLogger builds a text or JSON slog.Logger at the configured level
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// openStore opens the configured database, creating its directory
func openStore(cfg *config.Config) (*storage.SQLiteStorage, error) {
	dbPath, err := config.ExpandPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return storage.NewSQLiteStorage(dbPath)
}

// startMetrics serves collector on cfg.Metrics.Address until ctx is done.
// It returns nil when metrics are disabled.
func startMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) *metrics.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}

	collector := metrics.NewCollector(nil)
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Metrics listener started", "address", cfg.Metrics.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return collector
}
