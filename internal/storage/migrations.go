package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Matrices table: one row per loaded file
CREATE TABLE IF NOT EXISTS matrices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    content_hash BLOB NOT NULL,
    object TEXT,
    format TEXT,
    field TEXT,
    symmetry TEXT,
    nrows INTEGER DEFAULT 0,
    ncols INTEGER DEFAULT 0,
    nlines INTEGER DEFAULT 0,
    entry_count INTEGER DEFAULT 0,
    size_bytes INTEGER,
    mod_time TIMESTAMP,
    parse_error TEXT,
    loaded_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_matrices_path ON matrices(path);
CREATE INDEX IF NOT EXISTS idx_matrices_hash ON matrices(content_hash);

-- Entries table: data lines in file order
CREATE TABLE IF NOT EXISTS entries (
    matrix_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    row_index INTEGER NOT NULL,
    col_index INTEGER NOT NULL,
    real_value REAL,
    imag_value REAL,
    int_value INTEGER,
    PRIMARY KEY (matrix_id, seq),
    FOREIGN KEY (matrix_id) REFERENCES matrices(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_position ON entries(matrix_id, row_index, col_index);
`

const migrationV1Down = `
DROP TABLE IF EXISTS entries;
DROP TABLE IF EXISTS matrices;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
-- Compression detected when the file was opened
ALTER TABLE matrices ADD COLUMN compression TEXT NOT NULL DEFAULT 'none';

CREATE INDEX IF NOT EXISTS idx_matrices_field ON matrices(field);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_matrices_field;
ALTER TABLE matrices DROP COLUMN compression;
`

// SchemaVersion returns the highest applied migration version, or 0.0.0 for
// an empty database. Versions are compared as semver rather than by
// applied_at, which only has one-second resolution.
func SchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	currentVersion, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		// Skip if already applied
		if !currentVersion.LessThan(migrationVersion) {
			continue
		}

		if err := runMigration(ctx, db, migration.Up, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	// The first migration drops schema_version itself.
	record := "DELETE FROM schema_version WHERE version = ?"
	if migration == &AllMigrations[0] {
		record = ""
	}
	if err := runMigration(ctx, db, migration.Down, record, migration.Version); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}
	return nil
}

// runMigration executes a migration script and its schema_version bookkeeping
// in one transaction.
func runMigration(ctx context.Context, db *sql.DB, script, record, version string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if record != "" {
		if _, err := tx.ExecContext(ctx, record, version); err != nil {
			return err
		}
	}
	return tx.Commit()
}
