package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/internal/parser"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

func newScanCmd(opts *globalOptions) *cobra.Command {
	var (
		workers   int
		blockSize int
		limit     uint64
		readAhead bool
	)

	cmd := &cobra.Command{
		Use:   "scan <file>",
		Short: "Print every entry of a Matrix Market file",
		Long: `Parse a file and print one entry per line in file order. Matrices print
"row col value", vectors print "row value", and pattern files omit the value.

Examples:
  mtx scan matrix.mtx
  mtx scan --workers 8 --limit 20 big.mtx.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Parser.Workers
			}
			if !cmd.Flags().Changed("block-size") {
				blockSize = cfg.Parser.BlockSize
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cursorOpts := cursor.Options{}
			if readAhead {
				cursorOpts.ReadAhead = 2
			}
			f, err := cursor.Open(args[0], cursorOpts)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			p := parser.New(f, &parser.Config{Workers: workers, BlockSize: blockSize})
			if err := p.ScanPreamble(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			desc, _ := p.Descriptor()

			out := bufio.NewWriter(cmd.OutOrStdout())
			var printed uint64
			var writeErr error
			_, err = p.ScanEntries(ctx, func(e types.Entry) bool {
				if limit > 0 && printed >= limit {
					return false
				}
				writeErr = writeEntry(out, desc, e)
				printed++
				return writeErr == nil
			})
			if flushErr := out.Flush(); writeErr == nil {
				writeErr = flushErr
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if writeErr != nil {
				return writeErr
			}

			stats := p.Stats()
			logger.Debug("Scan complete",
				"path", args[0],
				"entries", stats.Entries,
				"blocks", stats.Blocks,
				"bytes", stats.Bytes,
				"workers", workers)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "goroutines parsing the body")
	cmd.Flags().IntVar(&blockSize, "block-size", parser.DefaultBlockSize, "bytes per parallel block")
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 0, "stop after this many entries (0 prints all)")
	cmd.Flags().BoolVar(&readAhead, "read-ahead", false, "read the file on a background goroutine")
	return cmd
}

func writeEntry(w *bufio.Writer, desc types.Descriptor, e types.Entry) error {
	var err error
	switch {
	case desc.IsVector() && desc.Field == types.FieldPattern:
		_, err = fmt.Fprintf(w, "%d\n", e.Row)
	case desc.IsVector():
		_, err = fmt.Fprintf(w, "%d %s\n", e.Row, e.Value)
	case desc.Field == types.FieldPattern:
		_, err = fmt.Fprintf(w, "%d %d\n", e.Row, e.Col)
	default:
		_, err = fmt.Fprintf(w, "%d %d %s\n", e.Row, e.Col, e.Value)
	}
	return err
}
