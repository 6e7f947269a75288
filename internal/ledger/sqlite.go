// Package ledger owns the persistent tabular artifact: three named relations
// (payments, meta, confirmed) sharing one SQLite file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/hramos/chatledger/internal/common"
)

// Store implements the ledger over SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the ledger file at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: ledger path is empty", common.ErrInvalidConfig)
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.dbPath
}

// Exists reports whether a ledger file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// retryOpts bounds how long a write waits out an external program holding
// the ledger file open.
var retryOpts = common.RetryOptions{MaxAttempts: 3}

// withWriteRetry runs op, reclassifying lock contention as retryable and
// retrying it a bounded number of times before surfacing the failure.
func (s *Store) withWriteRetry(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, func() error {
		err := op()
		if err != nil && isLocked(err) {
			return &common.RetryableError{Err: fmt.Errorf("%w: %v", common.ErrLedgerLocked, err), Retryable: true}
		}
		return err
	}, retryOpts)
}

// isLocked reports whether err is SQLite lock contention.
func isLocked(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
