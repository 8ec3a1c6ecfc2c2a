// Package mcp implements the Model Context Protocol (MCP) server for mtx.
//
// The MCP server exposes four tools to AI assistants:
//   - load_matrices: Parse Matrix Market files into the local database
//   - describe_matrix: Read a file's banner and size line
//   - get_entries: Page through the stored entries of a loaded matrix
//   - get_status: Report counts, failures and database health
//
// The server speaks JSON-RPC 2.0 over stdio. Logs go to stderr; stdout is
// reserved for the protocol.
//
//	mtx serve
//
// # Tool: load_matrices
//
//	Request:
//	{
//	  "name": "load_matrices",
//	  "arguments": {
//	    "path": "/data/matrices",
//	    "workers": 4,
//	    "force": false
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "3f0c9a4e-8d7b-4b49-9a0c-1d2e3f4a5b6c",
//	  "files_loaded": 12,
//	  "files_skipped": 3,
//	  "files_failed": 1,
//	  "entries_loaded": 48211,
//	  "duration_ms": 842,
//	  "errors": ["/data/matrices/bad.mtx: mtx: fewer lines present (9) than specified in the header (10) on line 12"]
//	}
//
// workers sets the goroutines scanning each file's body. Unchanged files are
// skipped by content hash unless force is set.
//
// # Tool: describe_matrix
//
// Parses only the preamble, so it works on files that were never loaded.
// Preambles are cached until the file's size or modification time changes:
//
//	Response:
//	{
//	  "banner": "%%MatrixMarket matrix coordinate real symmetric",
//	  "rows": 1000, "cols": 1000, "lines": 5012,
//	  "compression": "gzip",
//	  "cached": false,
//	  "loaded": true,
//	  "entry_count": 5012
//	}
//
// # Tool: get_entries
//
// Entries come back in file order. Values are rendered as they would appear on
// a data line; pattern matrices have no value.
//
//	Request:  {"path": "/data/matrices/a.mtx", "row": 3, "limit": 2}
//	Response: {"entries": [{"row": 3, "col": 1, "value": "0.5"}, {"row": 3, "col": 7, "value": "-2"}], ...}
//
// # Error Handling
//
// Handlers return *MCPError values carrying JSON-RPC codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: File is not valid Matrix Market; data carries kind and line
//   - -32002: Load in progress
//   - -32003: Matrix not loaded
//   - -32004: Matrix was loaded but failed to parse
package mcp
