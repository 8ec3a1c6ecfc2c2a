// Package storage provides SQLite-based persistence for loaded matrices.
//
// The storage layer manages:
//   - Matrix metadata (banner, size line, content hash, load errors)
//   - Data entries in file order
//
// # Database Schema
//
// Tables:
//   - matrices: one row per loaded file, keyed by path
//   - entries: (matrix_id, seq) keyed data lines with row, column and value
//   - schema_version: applied migrations, compared as semver
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.mtx/matrices.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	m := &storage.Matrix{Path: "a.mtx", ContentHash: hash}
//	m.SetDescriptor(desc)
//	m.SetDimensions(dims)
//	err = store.UpsertMatrix(ctx, m)
//
// # Transactions
//
// The loader replaces a matrix and its entries atomically:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertMatrix(ctx, m)
//	_ = tx.DeleteEntries(ctx, m.ID)
//	_ = tx.InsertEntries(ctx, entries)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
package storage
