// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hramos/chatledger/internal/ledger"
)

// SetupTestLedger creates a migrated ledger store in a temp directory and
// registers its cleanup.
func SetupTestLedger(t *testing.T) *ledger.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("failed to create test ledger: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test ledger: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
