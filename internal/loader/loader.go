package loader

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/internal/metrics"
	"github.com/tatami-inc/eminem-sub000/internal/parser"
	"github.com/tatami-inc/eminem-sub000/internal/storage"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// DefaultBatchSize is the number of entries per InsertEntries call.
const DefaultBatchSize = 4096

// ErrLoadInProgress is returned by Load while another run holds the loader.
var ErrLoadInProgress = errors.New("a load is already in progress")

// DefaultExtensions are matched when Config.Extensions is empty.
var DefaultExtensions = []string{".mtx", ".mtx.gz"}

// Loader parses Matrix Market files and stores them: discover -> hash -> parse -> store
type Loader struct {
	storage storage.Storage
	logger  *slog.Logger
	metrics *metrics.Collector

	lock runLock
}

// Config contains configuration for a load run
type Config struct {
	Workers       int           // Files processed concurrently (default: runtime.NumCPU())
	BatchSize     int           // Entries per InsertEntries call (default: 4096)
	ParserWorkers int           // Goroutines scanning one file's body (default: 1)
	BlockSize     int           // Bytes per parallel block (default: parser.DefaultBlockSize)
	ReadAhead     int           // Buffers read ahead per file on a background goroutine (default: 0)
	Extensions    []string      // File suffixes matched when walking a directory (default: .mtx, .mtx.gz)
	Force         bool          // Reload files whose content hash is unchanged
	Debounce      time.Duration // Quiet period before Watch reloads (default: 500ms)
}

// Statistics contains statistics about one load run
type Statistics struct {
	RunID         uuid.UUID
	FilesLoaded   int
	FilesSkipped  int
	FilesFailed   int
	EntriesLoaded int64
	Duration      time.Duration
	ErrorMessages []string
}

// New creates a Loader. A nil logger uses slog.Default(); a nil collector
// records no metrics.
func New(store storage.Storage, logger *slog.Logger, collector *metrics.Collector) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		storage: store,
		logger:  logger,
		metrics: collector,
	}
}

func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.ParserWorkers <= 0 {
		out.ParserWorkers = 1
	}
	if out.BlockSize <= 0 {
		out.BlockSize = parser.DefaultBlockSize
	}
	if len(out.Extensions) == 0 {
		out.Extensions = DefaultExtensions
	}
	if out.Debounce <= 0 {
		out.Debounce = 500 * time.Millisecond
	}
	return &out
}

// Load loads root, which is either a single file or a directory walked for
// files matching config.Extensions. Files that fail to parse are recorded
// with their parse error and counted in FilesFailed; only storage failures and
// cancellation abort the run.
func (l *Loader) Load(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !l.lock.tryAcquire() {
		return nil, ErrLoadInProgress
	}
	defer l.lock.release()

	cfg := config.withDefaults()
	startTime := time.Now()
	stats := &Statistics{
		RunID:         uuid.New(),
		ErrorMessages: make([]string, 0),
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	files, err := discoverFiles(absRoot, cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	l.logger.Info("Load started",
		"run_id", stats.RunID,
		"root", absRoot,
		"files", len(files),
		"workers", cfg.Workers,
	)

	if err := l.loadFiles(ctx, files, cfg, stats); err != nil {
		return nil, fmt.Errorf("failed to load files: %w", err)
	}

	stats.Duration = time.Since(startTime)
	l.logger.Info("Load finished",
		"run_id", stats.RunID,
		"loaded", stats.FilesLoaded,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"entries", stats.EntriesLoaded,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return stats, nil
}

// discoverFiles returns root itself when it is a file, else every matching
// file below it. Hidden directories are skipped.
func discoverFiles(root string, extensions []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if hasExtension(path, extensions) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func hasExtension(path string, extensions []string) bool {
	lower := strings.ToLower(path)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// fileResult is the outcome of one file
type fileResult struct {
	status  string
	entries uint64
	err     error // parse or read failure; nil unless status is failed
}

// loadFiles fans files out to at most cfg.Workers goroutines
func (l *Loader) loadFiles(ctx context.Context, files []string, cfg *Config, stats *Statistics) error {
	semaphore := make(chan struct{}, cfg.Workers)

	var (
		loaded  atomic.Int32
		skipped atomic.Int32
		failed  atomic.Int32
		entries atomic.Int64
		mu      sync.Mutex // protects stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			start := time.Now()
			res, err := l.loadFile(gctx, path, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			l.metrics.RecordFile(res.status, time.Since(start))

			switch res.status {
			case metrics.StatusLoaded:
				loaded.Add(1)
				entries.Add(int64(res.entries))
				l.logger.Debug("Matrix loaded", "path", path, "entries", res.entries,
					"duration_ms", time.Since(start).Milliseconds())
			case metrics.StatusSkipped:
				skipped.Add(1)
				l.logger.Debug("Matrix unchanged", "path", path)
			case metrics.StatusFailed:
				failed.Add(1)
				l.logger.Warn("Matrix failed to load", "path", path, "error", res.err)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, res.err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.FilesLoaded = int(loaded.Load())
	stats.FilesSkipped = int(skipped.Load())
	stats.FilesFailed = int(failed.Load())
	stats.EntriesLoaded = entries.Load()
	sort.Strings(stats.ErrorMessages)
	return nil
}

// loadFile loads a single file. The returned error is a storage failure or
// cancellation; parse failures are reported through fileResult.
func (l *Loader) loadFile(ctx context.Context, path string, cfg *Config) (*fileResult, error) {
	hash, modTime, sizeBytes, err := computeFileHash(path)
	if err != nil {
		return &fileResult{status: metrics.StatusFailed, err: err}, nil
	}

	existing, err := l.storage.GetMatrix(ctx, path)
	switch {
	case err == nil:
		if !cfg.Force && existing.ContentHash == hash {
			return &fileResult{status: metrics.StatusSkipped}, nil
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, err
	}

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	m := &storage.Matrix{
		Path:        path,
		ContentHash: hash,
		SizeBytes:   sizeBytes,
		ModTime:     modTime,
	}

	res, err := l.storeMatrix(ctx, tx, m, cfg)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

// storeMatrix parses path into m and its entries within tx
func (l *Loader) storeMatrix(ctx context.Context, tx storage.Tx, m *storage.Matrix, cfg *Config) (*fileResult, error) {
	f, err := cursor.Open(m.Path, cursor.Options{ReadAhead: cfg.ReadAhead})
	if err != nil {
		return l.storeFailure(ctx, tx, m, err)
	}
	defer func() { _ = f.Close() }()
	m.Compression = string(f.Compression)

	p := parser.New(f, &parser.Config{
		Workers:   cfg.ParserWorkers,
		BlockSize: cfg.BlockSize,
	})
	if err := p.ScanPreamble(); err != nil {
		return l.storeFailure(ctx, tx, m, err)
	}

	desc, _ := p.Descriptor()
	dims, _ := p.Dimensions()
	m.SetDescriptor(desc)
	m.SetDimensions(dims)
	m.ParseError = nil

	if err := tx.UpsertMatrix(ctx, m); err != nil {
		return nil, err
	}
	if err := tx.DeleteEntries(ctx, m.ID); err != nil {
		return nil, err
	}

	var (
		batch    = make([]storage.Entry, 0, cfg.BatchSize)
		seq      int64
		storeErr error
	)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if err := tx.InsertEntries(ctx, batch); err != nil {
			storeErr = err
			return false
		}
		batch = batch[:0]
		return true
	}

	_, err = p.ScanEntries(ctx, func(e types.Entry) bool {
		batch = append(batch, storage.FromTypesEntry(e, m.ID, seq))
		seq++
		if len(batch) >= cfg.BatchSize {
			return flush()
		}
		return true
	})
	if storeErr != nil {
		return nil, storeErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return l.storeFailure(ctx, tx, m, err)
	}
	if !flush() {
		return nil, storeErr
	}

	scan := p.Stats()
	m.EntryCount = int64(scan.Entries)
	if err := tx.UpsertMatrix(ctx, m); err != nil {
		return nil, err
	}
	l.metrics.RecordScan(desc.Field, scan.Entries, scan.Blocks, scan.Bytes)

	return &fileResult{status: metrics.StatusLoaded, entries: scan.Entries}, nil
}

// storeFailure records cause on the matrix row and drops any stored entries
func (l *Loader) storeFailure(ctx context.Context, tx storage.Tx, m *storage.Matrix, cause error) (*fileResult, error) {
	msg := cause.Error()
	m.ParseError = &msg
	m.EntryCount = 0

	if err := tx.UpsertMatrix(ctx, m); err != nil {
		return nil, err
	}
	if err := tx.DeleteEntries(ctx, m.ID); err != nil {
		return nil, err
	}
	l.metrics.RecordParseError(cause)

	return &fileResult{status: metrics.StatusFailed, err: cause}, nil
}

// Remove deletes the stored matrix for path, if any.
func (l *Loader) Remove(ctx context.Context, path string) error {
	m, err := l.storage.GetMatrix(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return l.storage.DeleteMatrix(ctx, m.ID)
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, time.Time, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))

	return result, info.ModTime(), info.Size(), nil
}
