package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// entriesPerInsert bounds the rows of one multi-row INSERT, keeping the bound
// parameters under SQLite's default limit.
const entriesPerInsert = 128

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Matrix operations

const matrixColumns = `
	id, path, content_hash, object, format, field, symmetry,
	nrows, ncols, nlines, entry_count, size_bytes, compression, mod_time,
	parse_error, loaded_at, created_at, updated_at`

// scanMatrix reads one row selected with matrixColumns
func scanMatrix(row scanner) (*Matrix, error) {
	var m Matrix
	var hash []byte
	var object, format, field, symmetry sql.NullString
	var rows, cols, lines int64
	var modTime, loadedAt sql.NullTime
	var parseError sql.NullString

	err := row.Scan(
		&m.ID, &m.Path, &hash, &object, &format, &field, &symmetry,
		&rows, &cols, &lines, &m.EntryCount, &m.SizeBytes, &m.Compression, &modTime,
		&parseError, &loadedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	copy(m.ContentHash[:], hash)
	m.Object, m.Format, m.Field, m.Symmetry = object.String, format.String, field.String, symmetry.String
	m.Rows, m.Cols, m.Lines = uint64(rows), uint64(cols), uint64(lines)
	if modTime.Valid {
		m.ModTime = modTime.Time
	}
	if loadedAt.Valid {
		m.LoadedAt = loadedAt.Time
	}
	if parseError.Valid {
		m.ParseError = &parseError.String
	}
	return &m, nil
}

// upsertMatrixWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertMatrixWithQuerier(ctx context.Context, q querier, m *Matrix) error {
	query := `
		INSERT INTO matrices (
			path, content_hash, object, format, field, symmetry,
			nrows, ncols, nlines, entry_count, size_bytes, compression, mod_time,
			parse_error, loaded_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			object = excluded.object,
			format = excluded.format,
			field = excluded.field,
			symmetry = excluded.symmetry,
			nrows = excluded.nrows,
			ncols = excluded.ncols,
			nlines = excluded.nlines,
			entry_count = excluded.entry_count,
			size_bytes = excluded.size_bytes,
			compression = excluded.compression,
			mod_time = excluded.mod_time,
			parse_error = excluded.parse_error,
			loaded_at = excluded.loaded_at,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	if m.Compression == "" {
		m.Compression = "none"
	}
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		m.Path, m.ContentHash[:], m.Object, m.Format, m.Field, m.Symmetry,
		int64(m.Rows), int64(m.Cols), int64(m.Lines), m.EntryCount, m.SizeBytes, m.Compression, m.ModTime,
		m.ParseError, now, now, now,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert matrix: %w", err)
	}

	m.LoadedAt = now
	m.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertMatrix(ctx context.Context, m *Matrix) error {
	return s.upsertMatrixWithQuerier(ctx, s.querier(), m)
}

// getMatrixWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getMatrixWithQuerier(ctx context.Context, q querier, path string) (*Matrix, error) {
	query := `SELECT ` + matrixColumns + ` FROM matrices WHERE path = ?`
	m, err := scanMatrix(q.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *SQLiteStorage) GetMatrix(ctx context.Context, path string) (*Matrix, error) {
	return s.getMatrixWithQuerier(ctx, s.querier(), path)
}

// getMatrixByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getMatrixByIDWithQuerier(ctx context.Context, q querier, matrixID int64) (*Matrix, error) {
	query := `SELECT ` + matrixColumns + ` FROM matrices WHERE id = ?`
	m, err := scanMatrix(q.QueryRowContext(ctx, query, matrixID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *SQLiteStorage) GetMatrixByID(ctx context.Context, matrixID int64) (*Matrix, error) {
	return s.getMatrixByIDWithQuerier(ctx, s.querier(), matrixID)
}

// listMatricesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listMatricesWithQuerier(ctx context.Context, q querier) ([]*Matrix, error) {
	query := `SELECT ` + matrixColumns + ` FROM matrices ORDER BY path`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	matrices := make([]*Matrix, 0)
	for rows.Next() {
		m, err := scanMatrix(rows)
		if err != nil {
			return nil, err
		}
		matrices = append(matrices, m)
	}
	return matrices, rows.Err()
}

func (s *SQLiteStorage) ListMatrices(ctx context.Context) ([]*Matrix, error) {
	return s.listMatricesWithQuerier(ctx, s.querier())
}

// deleteMatrixWithQuerier removes a matrix; its entries go with it through
// the foreign key cascade.
func (s *SQLiteStorage) deleteMatrixWithQuerier(ctx context.Context, q querier, matrixID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM matrices WHERE id = ?`, matrixID)
	return err
}

func (s *SQLiteStorage) DeleteMatrix(ctx context.Context, matrixID int64) error {
	return s.deleteMatrixWithQuerier(ctx, s.querier(), matrixID)
}

// Entry operations

// insertEntriesWithQuerier writes entries with multi-row INSERT statements
func (s *SQLiteStorage) insertEntriesWithQuerier(ctx context.Context, q querier, entries []Entry) error {
	for start := 0; start < len(entries); start += entriesPerInsert {
		batch := entries[start:min(start+entriesPerInsert, len(entries))]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*7)
		for i := range batch {
			e := &batch[i]
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, e.MatrixID, e.Seq, int64(e.Row), int64(e.Col),
				nullableFloat(e.Real), nullableFloat(e.Imag), e.Integer)
		}

		query := `INSERT INTO entries (matrix_id, seq, row_index, col_index, real_value, imag_value, int_value) VALUES ` +
			strings.Join(placeholders, ",")
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert entries: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertEntries(ctx context.Context, entries []Entry) error {
	return s.insertEntriesWithQuerier(ctx, s.querier(), entries)
}

// deleteEntriesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEntriesWithQuerier(ctx context.Context, q querier, matrixID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM entries WHERE matrix_id = ?`, matrixID)
	return err
}

func (s *SQLiteStorage) DeleteEntries(ctx context.Context, matrixID int64) error {
	return s.deleteEntriesWithQuerier(ctx, s.querier(), matrixID)
}

// listEntriesWithQuerier returns entries in file order, optionally restricted
// to one row or column and paged.
func (s *SQLiteStorage) listEntriesWithQuerier(ctx context.Context, q querier, matrixID int64, filter *EntryFilter) ([]*Entry, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT matrix_id, seq, row_index, col_index, real_value, imag_value, int_value
		FROM entries
		WHERE matrix_id = ?`)
	args := []interface{}{matrixID}

	limit, offset := -1, 0
	if filter != nil {
		if filter.Row > 0 {
			sb.WriteString(` AND row_index = ?`)
			args = append(args, int64(filter.Row))
		}
		if filter.Col > 0 {
			sb.WriteString(` AND col_index = ?`)
			args = append(args, int64(filter.Col))
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}
	sb.WriteString(` ORDER BY seq LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*Entry, 0)
	for rows.Next() {
		var e Entry
		var row, col int64
		var re, im sql.NullFloat64
		var iv sql.NullInt64
		if err := rows.Scan(&e.MatrixID, &e.Seq, &row, &col, &re, &im, &iv); err != nil {
			return nil, err
		}
		e.Row, e.Col = uint64(row), uint64(col)
		e.Real, e.Imag, e.Integer = nullFloat(re), nullFloat(im), iv.Int64
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) ListEntries(ctx context.Context, matrixID int64, filter *EntryFilter) ([]*Entry, error) {
	return s.listEntriesWithQuerier(ctx, s.querier(), matrixID, filter)
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{}

	var lastLoaded sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(parse_error), MAX(loaded_at) FROM matrices
	`).Scan(&status.MatricesCount, &status.FailedCount, &lastLoaded)
	if err != nil {
		return nil, err
	}
	if lastLoaded.Valid {
		status.LastLoadedAt = parseTimestamp(lastLoaded.String)
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&status.EntriesCount)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int64
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var version string
	_ = q.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		SchemaVersion:      version,
	}
	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// parseTimestamp reads an aggregate timestamp, which SQLite returns as text
// rather than as a typed time column.
func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	// The Go driver may append a monotonic clock reading.
	if i := strings.Index(raw, " m="); i > 0 {
		return parseTimestamp(raw[:i])
	}
	return time.Time{}
}

// Transaction implementations

func (t *sqliteTx) UpsertMatrix(ctx context.Context, m *Matrix) error {
	return t.storage.upsertMatrixWithQuerier(ctx, t.querier(), m)
}

func (t *sqliteTx) GetMatrix(ctx context.Context, path string) (*Matrix, error) {
	return t.storage.getMatrixWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) GetMatrixByID(ctx context.Context, matrixID int64) (*Matrix, error) {
	return t.storage.getMatrixByIDWithQuerier(ctx, t.querier(), matrixID)
}

func (t *sqliteTx) ListMatrices(ctx context.Context) ([]*Matrix, error) {
	return t.storage.listMatricesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteMatrix(ctx context.Context, matrixID int64) error {
	return t.storage.deleteMatrixWithQuerier(ctx, t.querier(), matrixID)
}

func (t *sqliteTx) InsertEntries(ctx context.Context, entries []Entry) error {
	return t.storage.insertEntriesWithQuerier(ctx, t.querier(), entries)
}

func (t *sqliteTx) DeleteEntries(ctx context.Context, matrixID int64) error {
	return t.storage.deleteEntriesWithQuerier(ctx, t.querier(), matrixID)
}

func (t *sqliteTx) ListEntries(ctx context.Context, matrixID int64, filter *EntryFilter) ([]*Entry, error) {
	return t.storage.listEntriesWithQuerier(ctx, t.querier(), matrixID, filter)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
