package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tatami-inc/eminem-sub000/internal/config"
	"github.com/tatami-inc/eminem-sub000/internal/loader"
)

func newLoadCmd(opts *globalOptions) *cobra.Command {
	var (
		watch    bool
		force    bool
		workers  int
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load Matrix Market files into the database",
		Long: `Parse a file, or every matching file under a directory, and store the
results in the database. Files whose content hash is unchanged since the last
load are skipped unless --force is given.

With --watch, load keeps running and reloads files as they change. A cron
--schedule (or watch.schedule in the config file) adds periodic full reloads.

Examples:
  mtx load /data/matrices
  mtx load --force --workers 4 matrix.mtx.gz
  mtx load --watch /data/matrices
  mtx load --watch --schedule "@every 1h" /mnt/nfs/matrices`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Parser.Workers = workers
			}
			if cmd.Flags().Changed("schedule") {
				if !watch {
					return fmt.Errorf("--schedule requires --watch")
				}
				cfg.Watch.Schedule = schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			collector := startMetrics(ctx, cfg, logger)
			l := loader.New(store, logger, collector)
			runCfg := loaderConfig(cfg)
			runCfg.Force = force

			out := cmd.OutOrStdout()
			if !watch {
				stats, err := l.Load(ctx, args[0], runCfg)
				if err != nil {
					return err
				}
				printStatistics(out, stats)
				if stats.FilesFailed > 0 {
					return fmt.Errorf("%d file(s) failed to load", stats.FilesFailed)
				}
				return nil
			}

			var mu sync.Mutex
			onLoad := func(stats *loader.Statistics, err error) {
				if err != nil {
					logger.Error("Reload failed", "error", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				printStatistics(out, stats)
			}

			if cfg.Watch.Schedule != "" {
				if err := l.NewScheduler(args[0], runCfg, onLoad).Start(ctx, cfg.Watch.Schedule); err != nil {
					return err
				}
			}

			logger.Info("Watching for changes", "path", args[0])
			return l.Watch(ctx, args[0], runCfg, onLoad)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and reload files as they change")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "reload files even when their content is unchanged")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "goroutines parsing each file's body")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression for periodic full reloads with --watch")
	return cmd
}

func loaderConfig(cfg *config.Config) *loader.Config {
	return &loader.Config{
		Workers:       cfg.Loader.Workers,
		BatchSize:     cfg.Loader.BatchSize,
		ParserWorkers: cfg.Parser.Workers,
		BlockSize:     cfg.Parser.BlockSize,
		Extensions:    cfg.Loader.Extensions,
		Debounce:      cfg.Watch.Debounce,
	}
}

func printStatistics(w io.Writer, stats *loader.Statistics) {
	fmt.Fprintf(w, "run %s: %d loaded, %d skipped, %d failed, %d entries in %s\n",
		stats.RunID, stats.FilesLoaded, stats.FilesSkipped, stats.FilesFailed,
		stats.EntriesLoaded, stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(w, "  %s\n", msg)
	}
}
