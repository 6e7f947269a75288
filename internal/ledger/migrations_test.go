package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramos/chatledger/internal/model"
)

func openStoreAt(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func applyV1(t *testing.T, store *Store) {
	t.Helper()
	tx, err := store.db.Begin()
	require.NoError(t, err)
	require.NoError(t, migrations[0].Up(tx))
	require.NoError(t, tx.Commit())
	_, err = store.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
}

func TestMigrateFreshLedger(t *testing.T) {
	store := openStoreAt(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrateBackfillsLegacyRows(t *testing.T) {
	store := openStoreAt(t)
	ctx := context.Background()

	applyV1(t, store)

	legacyInsert := `
		INSERT INTO payments (
			identifier, display_name, date, time, payment, savings, total,
			sequence_number, branch, time_slot, confirmed, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	// A group row (savings present) with an unpadded identifier, and an
	// individual row.
	_, err := store.db.Exec(legacyInsert,
		"45", "LOS PINOS", "01/02/25", "09:00:00", 500.0, 50.0, 550.0,
		"pending", "pending", "morning", "no", "old.txt")
	require.NoError(t, err)
	_, err = store.db.Exec(legacyInsert,
		"1234", "JUAN PEREZ", "01/02/25", "10:00:00", 250.0, 0.0, 250.0,
		"pending", "pending", "morning", "yes", "old.txt")
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	rows, err := store.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	group := rows[0]
	assert.Equal(t, "000045", group.Identifier)
	assert.Equal(t, model.KindGroup, group.Kind)
	assert.Equal(t, model.DefaultCycle, group.Cycle)
	assert.Equal(t, "000004501", group.DepositCode)
	assert.Equal(t, model.WeeklyNotFound, group.WeeklyPayment)
	assert.False(t, group.Confirmed)

	individual := rows[1]
	assert.Equal(t, "001234", individual.Identifier)
	assert.Equal(t, model.KindIndividual, individual.Kind)
	assert.Equal(t, "100123401", individual.DepositCode)
	assert.True(t, individual.Confirmed)

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
