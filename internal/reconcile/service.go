// Package reconcile matches confirmation records against ledger rows and
// marks them settled.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/hramos/chatledger/internal/ledger"
	"github.com/hramos/chatledger/internal/model"
)

// amountTolerance bounds the accepted payment drift between a ledger row and
// its confirmation. Savings may drift further; that is corrected, not
// rejected.
const amountTolerance = 0.01

// Service reconciles confirmation records against the ledger store.
type Service struct {
	store *ledger.Store
}

// NewService creates a reconciliation service over the given store.
func NewService(store *ledger.Store) *Service {
	return &Service{store: store}
}

// Reconcile processes a batch of confirmation records. Each record is
// matched against the first ledger row with the same type, identifier and
// case-insensitive name whose payment is within tolerance. Matched rows are
// confirmed in place and copied to the audit relation; unmatched records
// come back as human-readable alerts, never as errors.
func (s *Service) Reconcile(ctx context.Context, confirmations []model.PaymentEntry) ([]model.LedgerRow, []string, error) {
	rows, err := s.store.Rows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load ledger rows: %w", err)
	}

	var confirmed []model.LedgerRow
	var alerts []string

	for _, conf := range confirmations {
		idx := matchRow(rows, conf)
		if idx < 0 {
			alerts = append(alerts, fmt.Sprintf(
				"no ledger row found for confirmation: ID %s, name %s, payment %.2f, savings %.2f",
				conf.Identifier, conf.DisplayName, conf.Payment, conf.Savings))
			continue
		}

		row := &rows[idx]
		row.Confirmed = true

		if math.Abs(row.Savings-conf.Savings) > amountTolerance {
			slog.Warn("Confirmation savings disagrees with ledger, correcting",
				"id", row.Identifier,
				"ledger_savings", row.Savings,
				"confirmed_savings", conf.Savings)
			row.Savings = conf.Savings
			row.Total = round2(row.Payment + conf.Savings)
		}

		if err := s.store.UpdateConfirmation(ctx, row); err != nil {
			return confirmed, alerts, fmt.Errorf("failed to confirm row %s: %w", row.Identifier, err)
		}
		if err := s.store.AppendConfirmed(ctx, row); err != nil {
			return confirmed, alerts, fmt.Errorf("failed to record confirmation %s: %w", row.Identifier, err)
		}

		confirmed = append(confirmed, *row)
	}

	return confirmed, alerts, nil
}

// matchRow returns the index of the first row satisfying the composite
// tolerant key, or -1. Already-confirmed rows are skipped so a batch of
// confirmations never double-claims one ledger row.
func matchRow(rows []model.LedgerRow, conf model.PaymentEntry) int {
	for i := range rows {
		row := &rows[i]
		if row.Confirmed {
			continue
		}
		if row.Kind != conf.Kind {
			continue
		}
		if row.Identifier != conf.Identifier {
			continue
		}
		if !strings.EqualFold(row.DisplayName, conf.DisplayName) {
			continue
		}
		if math.Abs(row.Payment-conf.Payment) > amountTolerance {
			continue
		}
		return i
	}
	return -1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
