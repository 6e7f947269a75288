package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hramos/chatledger/internal/model"
)

// amountTolerance treats stored and incoming amounts within half a cent as
// equal when matching the dedup key against REAL columns.
const amountTolerance = 0.005

const paymentColumns = `rowid, identifier, display_name, date, time, payment, savings, total,
	sequence_number, branch, time_slot, type, cycle, concept, deposit_code,
	weekly_payment, confirmed, source_file`

// MergeEntries unions a batch of extracted entries into the payments
// relation. Rows already present under the dedup key win over reprocessed
// duplicates. Returns the total row count after the merge.
func (s *Store) MergeEntries(ctx context.Context, entries []model.PaymentEntry) (int, error) {
	err := s.withWriteRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		exists, err := tx.PrepareContext(ctx, `
			SELECT COUNT(*) FROM payments
			WHERE identifier = ? AND display_name = ?
			  AND ABS(payment - ?) < ? AND ABS(savings - ?) < ?
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare dedup check: %w", err)
		}
		defer func() { _ = exists.Close() }()

		insert, err := tx.PrepareContext(ctx, `
			INSERT INTO payments (
				identifier, display_name, date, time, payment, savings, total,
				sequence_number, branch, time_slot, type, cycle, concept,
				deposit_code, weekly_payment, confirmed, source_file
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = insert.Close() }()

		for _, e := range entries {
			var count int
			err := exists.QueryRowContext(ctx,
				e.Identifier, e.DisplayName,
				e.Payment, amountTolerance,
				e.Savings, amountTolerance,
			).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed dedup check for %s: %w", e.Identifier, err)
			}
			if count > 0 {
				slog.Debug("Skipping duplicate of existing ledger row", "id", e.Identifier, "name", e.DisplayName)
				continue
			}

			row := model.LedgerRow{Confirmed: e.Confirmed}
			if _, err := insert.ExecContext(ctx,
				e.Identifier, e.DisplayName, e.Date, e.Time,
				e.Payment, e.Savings, e.Total,
				e.SequenceNumber, e.Branch, e.TimeSlot,
				string(e.Kind), e.Cycle, e.Concept,
				e.DepositCode, e.WeeklyPayment,
				row.ConfirmedToken(), e.SourceFile,
			); err != nil {
				return fmt.Errorf("failed to insert payment %s: %w", e.Identifier, err)
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}

	return s.RowCount(ctx)
}

// RowCount returns the number of persisted payment rows.
func (s *Store) RowCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// Watermark returns the stored last-ingested timestamp, or "" when the
// ledger has never been written.
func (s *Store) Watermark(ctx context.Context) (string, error) {
	var ts string
	err := s.db.QueryRowContext(ctx, `SELECT last_timestamp FROM meta WHERE id = 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read watermark: %w", err)
	}
	return ts, nil
}

// SetWatermark overwrites the stored watermark. It is called only after
// extracted records have been committed to the ledger.
func (s *Store) SetWatermark(ctx context.Context, timestamp string) error {
	return s.withWriteRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO meta (id, last_timestamp) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET last_timestamp = excluded.last_timestamp
		`, timestamp)
		if err != nil {
			return fmt.Errorf("failed to write watermark: %w", err)
		}
		return nil
	})
}

// Rows returns every payment row in insertion order.
func (s *Store) Rows(ctx context.Context) ([]model.LedgerRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.LedgerRow
	for rows.Next() {
		row, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return result, nil
}

// UpdateConfirmation persists the reconciler's in-place mutation of one row:
// confirmed flag, corrected savings and recomputed total.
func (s *Store) UpdateConfirmation(ctx context.Context, row *model.LedgerRow) error {
	return s.withWriteRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE payments SET confirmed = ?, savings = ?, total = ? WHERE rowid = ?
		`, row.ConfirmedToken(), row.Savings, row.Total, row.RowID)
		if err != nil {
			return fmt.Errorf("failed to update confirmation for row %d: %w", row.RowID, err)
		}
		affected, err := res.RowsAffected()
		if err == nil && affected == 0 {
			return fmt.Errorf("row %d: %w", row.RowID, errNoSuchRow)
		}
		return nil
	})
}

var errNoSuchRow = fmt.Errorf("ledger row vanished during reconciliation")

// BackfillWeeklyPayments joins the amount-lookup table onto rows still
// carrying the "not found" sentinel. Returns how many rows were updated.
func (s *Store) BackfillWeeklyPayments(ctx context.Context, weekly func(identifier string, kind model.Kind) string) (int, error) {
	if weekly == nil {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rowid, identifier, type FROM payments WHERE weekly_payment = ?
	`, model.WeeklyNotFound)
	if err != nil {
		return 0, fmt.Errorf("failed to scan for weekly backfill: %w", err)
	}

	type pending struct {
		rowid  int64
		amount string
	}
	var updates []pending
	for rows.Next() {
		var rowid int64
		var identifier, kind string
		if err := rows.Scan(&rowid, &identifier, &kind); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("failed to scan row: %w", err)
		}
		if amount := weekly(identifier, model.Kind(kind)); amount != model.WeeklyNotFound {
			updates = append(updates, pending{rowid: rowid, amount: amount})
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("failed to iterate rows: %w", err)
	}
	_ = rows.Close()

	updated := 0
	err = s.withWriteRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `UPDATE payments SET weekly_payment = ? WHERE rowid = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare weekly update: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		updated = 0
		for _, u := range updates {
			if _, err := stmt.ExecContext(ctx, u.amount, u.rowid); err != nil {
				return fmt.Errorf("failed to backfill row %d: %w", u.rowid, err)
			}
			updated++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// scanLedgerRow maps one payments/confirmed result row onto the model.
func scanLedgerRow(rows *sql.Rows) (model.LedgerRow, error) {
	var r model.LedgerRow
	var kind, confirmed string
	err := rows.Scan(
		&r.RowID, &r.Identifier, &r.DisplayName, &r.Date, &r.Time,
		&r.Payment, &r.Savings, &r.Total,
		&r.SequenceNumber, &r.Branch, &r.TimeSlot,
		&kind, &r.Cycle, &r.Concept, &r.DepositCode,
		&r.WeeklyPayment, &confirmed, &r.SourceFile,
	)
	if err != nil {
		return model.LedgerRow{}, fmt.Errorf("failed to scan ledger row: %w", err)
	}
	r.Kind = model.Kind(kind)
	r.Confirmed = confirmed == "yes"
	return r, nil
}
