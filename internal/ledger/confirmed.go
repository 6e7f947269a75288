package ledger

import (
	"context"
	"fmt"

	"github.com/hramos/chatledger/internal/model"
)

// AppendConfirmed copies a reconciled row into the append-only confirmed
// relation. The copy carries the row's post-reconciliation values.
func (s *Store) AppendConfirmed(ctx context.Context, row *model.LedgerRow) error {
	return s.withWriteRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO confirmed (
				identifier, display_name, date, time, payment, savings, total,
				sequence_number, branch, time_slot, type, cycle, concept,
				deposit_code, weekly_payment, confirmed, source_file
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			row.Identifier, row.DisplayName, row.Date, row.Time,
			row.Payment, row.Savings, row.Total,
			row.SequenceNumber, row.Branch, row.TimeSlot,
			string(row.Kind), row.Cycle, row.Concept,
			row.DepositCode, row.WeeklyPayment,
			row.ConfirmedToken(), row.SourceFile,
		)
		if err != nil {
			return fmt.Errorf("failed to append confirmed row %s: %w", row.Identifier, err)
		}
		return nil
	})
}

// ConfirmedRows returns the audit trail of reconciled payments.
func (s *Store) ConfirmedRows(ctx context.Context) ([]model.LedgerRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM confirmed ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed rows: %w", err)
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
		return nil, fmt.Errorf("failed to iterate confirmed rows: %w", err)
	}
	return result, nil
}

// ConfirmedCount returns the number of audit rows.
func (s *Store) ConfirmedCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM confirmed`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count confirmed rows: %w", err)
	}
	return count, nil
}
