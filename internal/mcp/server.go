package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tatami-inc/eminem-sub000/internal/config"
	"github.com/tatami-inc/eminem-sub000/internal/loader"
	"github.com/tatami-inc/eminem-sub000/internal/metrics"
	"github.com/tatami-inc/eminem-sub000/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "mtx-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Storage
	loader  *loader.Loader
	config  *config.Config
	logger  *slog.Logger

	preambles *preambleCache
}

// NewServer opens the database named by cfg.DBPath and registers the tools.
// A nil logger uses slog.Default(); a nil collector records no metrics.
func NewServer(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := config.ExpandPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return newServer(store, cfg, logger, collector), nil
}

// newServer wires an already opened store
func newServer(store storage.Storage, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		storage: store,
		loader:  loader.New(store, logger, collector),
		config:  cfg,
		logger:  logger,

		preambles: newPreambleCache(DefaultPreambleCacheSize),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("MCP server ready, listening on stdio")
	return server.ServeStdio(s.mcp)
}

// Close releases the database without serving.
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(loadMatricesTool(), s.handleLoadMatrices)
	s.mcp.AddTool(describeMatrixTool(), s.handleDescribeMatrix)
	s.mcp.AddTool(getEntriesTool(), s.handleGetEntries)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// loaderConfig builds a loader run from the server configuration
func (s *Server) loaderConfig() *loader.Config {
	return &loader.Config{
		Workers:       s.config.Loader.Workers,
		BatchSize:     s.config.Loader.BatchSize,
		ParserWorkers: s.config.Parser.Workers,
		BlockSize:     s.config.Parser.BlockSize,
		Extensions:    s.config.Loader.Extensions,
		Debounce:      s.config.Watch.Debounce,
	}
}
