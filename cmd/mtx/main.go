// mtx reads Matrix Market (.mtx) files.
//
// Usage:
//
//	# Print the banner and dimensions of a file
//	mtx inspect matrix.mtx
//
//	# Print every entry as "row col value", parsing with four goroutines
//	mtx scan --workers 4 matrix.mtx.gz
//
//	# Load a directory into the database and keep it in sync
//	mtx load --watch /data/matrices
//
//	# Serve the database to MCP clients over stdio
//	mtx serve
//
// Logs are written to stderr; stdout carries command output or, for serve,
// the MCP protocol.
package main

import (
	"fmt"
	"os"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
