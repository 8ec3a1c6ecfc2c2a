package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Limits on get_entries paging
const (
	DefaultEntriesLimit = 100
	MaxEntriesLimit     = 1000
)

// loadMatricesTool returns the tool definition for load_matrices
func loadMatricesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "load_matrices",
		Description: "Parse Matrix Market (.mtx, .mtx.gz) files and store their entries for querying",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .mtx file or a directory searched recursively",
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Goroutines parsing each file's body (1 = serial)",
					"minimum":     1,
					"maximum":     64,
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, reload files even when their content hash is unchanged",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// describeMatrixTool returns the tool definition for describe_matrix
func describeMatrixTool() mcp.Tool {
	return mcp.Tool{
		Name:        "describe_matrix",
		Description: "Read the banner and size line of a Matrix Market file without loading its entries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .mtx or .mtx.gz file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getEntriesTool returns the tool definition for get_entries
func getEntriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_entries",
		Description: "Return stored entries of a loaded matrix in file order, optionally filtered by row or column",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of a loaded matrix file",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of entries to return",
					"default":     DefaultEntriesLimit,
					"minimum":     1,
					"maximum":     MaxEntriesLimit,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of matching entries to skip",
					"default":     0,
					"minimum":     0,
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Only entries in this 1-based row",
					"minimum":     1,
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Only entries in this 1-based column",
					"minimum":     1,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report what has been loaded: matrix and entry counts, failures and database health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
