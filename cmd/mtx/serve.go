package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tatami-inc/eminem-sub000/internal/mcp"
	"github.com/tatami-inc/eminem-sub000/internal/storage"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the database to MCP clients over stdio",
		Long: `Start the MCP server on stdin/stdout. Logs go to stderr.

The server exposes the load_matrices, describe_matrix, get_entries and
get_status tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			logger.Info("mtx MCP server starting",
				"version", version,
				"build_mode", storage.BuildMode,
				"driver", storage.DriverName)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			collector := startMetrics(ctx, cfg, logger)
			server, err := mcp.NewServer(cfg, logger, collector)
			if err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			select {
			case sig := <-sigChan:
				logger.Info("Received signal, shutting down", "signal", sig.String())
				cancel()
				_ = server.Close()
				return nil
			case err := <-errChan:
				if err != nil {
					return err
				}
			}

			logger.Info("Server stopped")
			return nil
		},
	}
}
