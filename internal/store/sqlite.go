package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps session records in a single SQLite file.
type SQLiteStore struct {
	*sqlStore
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path. The
// parent directory is created as well.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	inner, err := newSQLStore(ctx, db, sqliteDialect)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: inner, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }
