// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"splitbill/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys is a per-connection pragma; setting it in the DSN
	// applies it to every pooled connection.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ResetAll drops every table and recreates the schema from scratch.
// Stored bills, items, participants, and assignments are all gone after
// this; calling it on an already-empty store is a no-op.
func (s *SQLiteStore) ResetAll(ctx context.Context) error {
	drop := `
DROP TABLE IF EXISTS assignments;
DROP TABLE IF EXISTS participants;
DROP TABLE IF EXISTS items;
DROP TABLE IF EXISTS bills;
`
	if _, err := s.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if err := runMigrations(s.db); err != nil {
		return fmt.Errorf("failed to recreate schema: %w", err)
	}
	return nil
}

// recalcSubtotalTx recomputes the bill's subtotal from its current items
// inside the caller's transaction and returns the new value.
func recalcSubtotalTx(ctx context.Context, tx *sql.Tx, billID string) (float64, error) {
	_, err := tx.ExecContext(ctx,
		`UPDATE bills
		 SET subtotal = (SELECT COALESCE(SUM(price), 0) FROM items WHERE bill_id = ?)
		 WHERE id = ?`,
		billID, billID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update subtotal: %w", err)
	}

	var subtotal float64
	err = tx.QueryRowContext(ctx, "SELECT subtotal FROM bills WHERE id = ?", billID).Scan(&subtotal)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read subtotal: %w", err)
	}
	return subtotal, nil
}
