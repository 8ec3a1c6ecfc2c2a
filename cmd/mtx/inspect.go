package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/internal/parser"
)

func newInspectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the banner and dimensions of a Matrix Market file",
		Long: `Parse the banner and size line of a file and print them. The body is
not read, so inspect is cheap on large files.

Examples:
  mtx inspect matrix.mtx
  mtx inspect matrix.mtx.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := opts.load(); err != nil {
				return err
			}

			f, err := cursor.Open(args[0], cursor.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			p := parser.New(f, nil)
			if err := p.ScanPreamble(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			desc, _ := p.Descriptor()
			dims, _ := p.Dimensions()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "banner:\t%s\n", desc)
			fmt.Fprintf(w, "object:\t%s\n", desc.Object)
			fmt.Fprintf(w, "format:\t%s\n", desc.Format)
			fmt.Fprintf(w, "field:\t%s\n", desc.Field)
			fmt.Fprintf(w, "symmetry:\t%s\n", desc.Symmetry)
			fmt.Fprintf(w, "rows:\t%d\n", dims.Rows)
			fmt.Fprintf(w, "cols:\t%d\n", dims.Cols)
			fmt.Fprintf(w, "lines:\t%d\n", dims.Lines)
			fmt.Fprintf(w, "compression:\t%s\n", f.Compression)
			return w.Flush()
		},
	}
}
