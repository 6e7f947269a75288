package ledger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramos/chatledger/internal/ledger"
	"github.com/hramos/chatledger/internal/model"
	"github.com/hramos/chatledger/internal/normalize"
	"github.com/hramos/chatledger/internal/testutil"
)

func entry(id, name string, kind model.Kind, payment, savings float64) model.PaymentEntry {
	return model.PaymentEntry{
		Kind:           kind,
		Identifier:     id,
		DisplayName:    name,
		Date:           "01/02/25",
		Time:           "09:00:00",
		Payment:        payment,
		Savings:        savings,
		Total:          payment + savings,
		SequenceNumber: model.SequencePending,
		Branch:         model.BranchPending,
		TimeSlot:       model.SlotMorning,
		Cycle:          "01",
		Concept:        model.ConceptPending,
		DepositCode:    normalize.DepositCode(kind.TypeTag(), id, "01"),
		WeeklyPayment:  model.WeeklyNotFound,
		SourceFile:     "chat.txt",
	}
}

func TestMergeEntriesRoundTrip(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	batch := []model.PaymentEntry{
		entry("000045", "LOS PINOS", model.KindGroup, 500, 50),
		entry("001234", "JUAN PEREZ", model.KindIndividual, 250, 0),
	}

	count, err := store.MergeEntries(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := store.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "000045", first.Identifier)
	assert.Equal(t, model.KindGroup, first.Kind)
	assert.InDelta(t, 550.0, first.Total, 0.001)
	assert.Equal(t, "000004501", first.DepositCode)
	assert.False(t, first.Confirmed)
	assert.Positive(t, first.RowID)

	assert.Equal(t, model.KindIndividual, rows[1].Kind)
	assert.Equal(t, "100123401", rows[1].DepositCode)
}

func TestMergeEntriesExistingRowWins(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	original := entry("000045", "LOS PINOS", model.KindGroup, 500, 50)
	count, err := store.MergeEntries(ctx, []model.PaymentEntry{original})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Same dedup key on a later date must not produce a second row.
	reprocessed := original
	reprocessed.Date = "02/02/25"
	reprocessed.SourceFile = "chat-2.txt"

	count, err = store.MergeEntries(ctx, []model.PaymentEntry{reprocessed})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := store.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01/02/25", rows[0].Date)
	assert.Equal(t, "chat.txt", rows[0].SourceFile)
}

func TestMergeEntriesDifferentAmountIsNewRow(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	a := entry("000045", "LOS PINOS", model.KindGroup, 500, 50)
	b := entry("000045", "LOS PINOS", model.KindGroup, 600, 50)

	count, err := store.MergeEntries(ctx, []model.PaymentEntry{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWatermark(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	ts, err := store.Watermark(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", ts)

	require.NoError(t, store.SetWatermark(ctx, "25/02/01 09:00:00"))
	require.NoError(t, store.SetWatermark(ctx, "25/02/01 18:30:05"))

	ts, err = store.Watermark(ctx)
	require.NoError(t, err)
	assert.Equal(t, "25/02/01 18:30:05", ts)
}

func TestUpdateConfirmation(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	_, err := store.MergeEntries(ctx, []model.PaymentEntry{
		entry("000045", "LOS PINOS", model.KindGroup, 500, 50),
	})
	require.NoError(t, err)

	rows, err := store.Rows(ctx)
	require.NoError(t, err)
	row := rows[0]

	row.Confirmed = true
	row.Savings = 60
	row.Total = 560
	require.NoError(t, store.UpdateConfirmation(ctx, &row))

	rows, err = store.Rows(ctx)
	require.NoError(t, err)
	assert.True(t, rows[0].Confirmed)
	assert.InDelta(t, 60.0, rows[0].Savings, 0.001)
	assert.InDelta(t, 560.0, rows[0].Total, 0.001)
}

func TestUpdateConfirmationMissingRow(t *testing.T) {
	store := testutil.SetupTestLedger(t)

	row := model.LedgerRow{RowID: 9999, Confirmed: true}
	assert.Error(t, store.UpdateConfirmation(context.Background(), &row))
}

func TestAppendConfirmed(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	count, err := store.ConfirmedCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	row := model.LedgerRow{
		Kind:           model.KindGroup,
		Identifier:     "000045",
		DisplayName:    "LOS PINOS",
		Date:           "01/02/25",
		Time:           "09:00:00",
		Payment:        500,
		Savings:        50,
		Total:          550,
		SequenceNumber: model.SequencePending,
		Branch:         model.BranchPending,
		TimeSlot:       model.SlotMorning,
		Cycle:          "01",
		Concept:        model.ConceptPending,
		DepositCode:    "000004501",
		WeeklyPayment:  model.WeeklyNotFound,
		Confirmed:      true,
		SourceFile:     "chat.txt",
	}
	require.NoError(t, store.AppendConfirmed(ctx, &row))

	confirmed, err := store.ConfirmedRows(ctx)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "000045", confirmed[0].Identifier)
	assert.True(t, confirmed[0].Confirmed)

	count, err = store.ConfirmedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBackfillWeeklyPayments(t *testing.T) {
	store := testutil.SetupTestLedger(t)
	ctx := context.Background()

	_, err := store.MergeEntries(ctx, []model.PaymentEntry{
		entry("000045", "LOS PINOS", model.KindGroup, 500, 50),
		entry("001234", "JUAN PEREZ", model.KindIndividual, 250, 0),
	})
	require.NoError(t, err)

	weekly := func(identifier string, kind model.Kind) string {
		if identifier == "000045" && kind == model.KindGroup {
			return "550.00"
		}
		return model.WeeklyNotFound
	}

	updated, err := store.BackfillWeeklyPayments(ctx, weekly)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	rows, err := store.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, "550.00", rows[0].WeeklyPayment)
	assert.Equal(t, model.WeeklyNotFound, rows[1].WeeklyPayment)

	// A second pass finds nothing left to fill for the same identifier.
	updated, err = store.BackfillWeeklyPayments(ctx, weekly)
	require.NoError(t, err)
	assert.Zero(t, updated)

	updated, err = store.BackfillWeeklyPayments(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	assert.False(t, ledger.Exists(path))

	store, err := ledger.Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.True(t, ledger.Exists(path))
	assert.False(t, ledger.Exists(dir))
	assert.Equal(t, path, store.Path())
}
