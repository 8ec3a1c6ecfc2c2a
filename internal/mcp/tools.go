package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tatami-inc/eminem-sub000/internal/loader"
	"github.com/tatami-inc/eminem-sub000/internal/storage"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeParseFailed     = -32001 // File is not valid Matrix Market
	ErrorCodeLoadInProgress  = -32002 // Another load operation is already running
	ErrorCodeNotLoaded       = -32003 // Matrix has not been loaded
	ErrorCodeMatrixHasErrors = -32004 // Matrix was loaded but failed to parse
)

// maxReportedErrors bounds the per-file errors echoed by load_matrices
const maxReportedErrors = 5

// handleLoadMatrices handles the load_matrices tool invocation
func (s *Server) handleLoadMatrices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path, false); err != nil {
		return nil, invalidPath(err)
	}

	cfg := s.loaderConfig()
	cfg.Force = getBoolDefault(args, "force", false)
	cfg.ParserWorkers = getIntDefault(args, "workers", cfg.ParserWorkers)
	if cfg.ParserWorkers < 1 || cfg.ParserWorkers > 64 {
		return nil, newMCPError(ErrorCodeInvalidParams, "workers must be between 1 and 64", map[string]interface{}{
			"param": "workers",
			"value": cfg.ParserWorkers,
		})
	}

	stats, err := s.loader.Load(ctx, path, cfg)
	if errors.Is(err, loader.ErrLoadInProgress) {
		return nil, newMCPError(ErrorCodeLoadInProgress, "another load is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "load failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run_id":         stats.RunID.String(),
		"files_loaded":   stats.FilesLoaded,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"entries_loaded": stats.EntriesLoaded,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if errorCount := len(stats.ErrorMessages); errorCount > 0 {
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDescribeMatrix handles the describe_matrix tool invocation. The
// preamble comes from the cache or disk; stored load state is added when present.
func (s *Server) handleDescribeMatrix(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path, true); err != nil {
		return nil, invalidPath(err)
	}

	pre, cached, err := s.preambles.get(path)
	if err != nil {
		return nil, parseFailure(err)
	}

	response := map[string]interface{}{
		"path":        path,
		"banner":      pre.desc.String(),
		"object":      string(pre.desc.Object),
		"format":      string(pre.desc.Format),
		"field":       string(pre.desc.Field),
		"symmetry":    string(pre.desc.Symmetry),
		"rows":        pre.dims.Rows,
		"cols":        pre.dims.Cols,
		"lines":       pre.dims.Lines,
		"compression": string(pre.compression),
		"cached":      cached,
		"loaded":      false,
	}

	m, err := s.storage.GetMatrix(ctx, path)
	switch {
	case err == nil:
		response["loaded"] = true
		response["entry_count"] = m.EntryCount
		response["loaded_at"] = m.LoadedAt.Format(time.RFC3339)
		if m.ParseError != nil {
			response["parse_error"] = *m.ParseError
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, newMCPError(ErrorCodeInternalError, "failed to get matrix", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetEntries handles the get_entries tool invocation
func (s *Server) handleGetEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", DefaultEntriesLimit)
	if limit < 1 || limit > MaxEntriesLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", MaxEntriesLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	filter := &storage.EntryFilter{
		Limit:  limit,
		Offset: getIntDefault(args, "offset", 0),
	}
	if filter.Offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": filter.Offset,
		})
	}
	for _, p := range []struct {
		name string
		dst  *uint64
	}{{"row", &filter.Row}, {"col", &filter.Col}} {
		v := getIntDefault(args, p.name, 0)
		if v < 0 {
			return nil, newMCPError(ErrorCodeInvalidParams, p.name+" must be a 1-based index", map[string]interface{}{
				"param": p.name,
				"value": v,
			})
		}
		*p.dst = uint64(v)
	}

	m, err := s.storage.GetMatrix(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotLoaded, "matrix not loaded; use load_matrices first", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get matrix", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if m.ParseError != nil {
		return nil, newMCPError(ErrorCodeMatrixHasErrors, "matrix failed to parse", map[string]interface{}{
			"path":        path,
			"parse_error": *m.ParseError,
		})
	}

	rows, err := s.storage.ListEntries(ctx, m.ID, filter)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list entries", map[string]interface{}{
			"error": err.Error(),
		})
	}

	field := types.Field(m.Field)
	entries := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		e := row.ToTypesEntry(field)
		entry := map[string]interface{}{
			"row": e.Row,
			"col": e.Col,
		}
		if field != types.FieldPattern {
			entry["value"] = e.Value.String()
		}
		entries[i] = entry
	}

	response := map[string]interface{}{
		"path":        path,
		"field":       m.Field,
		"entry_count": m.EntryCount,
		"offset":      filter.Offset,
		"returned":    len(entries),
		"entries":     entries,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	statistics := map[string]interface{}{
		"matrices_count": status.MatricesCount,
		"failed_count":   status.FailedCount,
		"entries_count":  status.EntriesCount,
		"db_size_mb":     fmt.Sprintf("%.2f", status.SizeMB),
	}
	if !status.LastLoadedAt.IsZero() {
		statistics["last_loaded_at"] = status.LastLoadedAt.Format(time.RFC3339)
	}

	response := map[string]interface{}{
		"statistics": statistics,
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"schema_version":      status.Health.SchemaVersion,
		},
		"build": map[string]interface{}{
			"mode":   storage.BuildMode,
			"driver": storage.DriverName,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// parseFailure maps a parser error to ErrorCodeParseFailed
func parseFailure(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	var pe *types.ParseError
	if errors.As(err, &pe) {
		data["kind"] = string(pe.Kind)
		data["message"] = pe.Message
		if pe.Line > 0 {
			data["line"] = pe.Line
		}
	}
	return newMCPError(ErrorCodeParseFailed, "not a valid Matrix Market file", data)
}

func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	return path, nil
}

func invalidPath(err error) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
		"param":  "path",
		"reason": err.Error(),
	})
}

// validatePath checks that path is absolute and readable. With fileOnly,
// directories are rejected.
func validatePath(path string, fileOnly bool) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if fileOnly && info.IsDir() {
		return ErrNotFile
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotFile         = errors.New("path is a directory, not a file")
)
