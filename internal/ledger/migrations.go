package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hramos/chatledger/internal/model"
	"github.com/hramos/chatledger/internal/normalize"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a ledger schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: payments, meta, confirmed",
		Up: func(tx *sql.Tx) error {
			// Identifier columns are TEXT throughout: leading zeros are
			// significant in identifiers, cycles and deposit codes.
			queries := []string{
				`CREATE TABLE IF NOT EXISTS payments (
					identifier TEXT NOT NULL,
					display_name TEXT NOT NULL,
					date TEXT NOT NULL,
					time TEXT NOT NULL,
					payment REAL NOT NULL,
					savings REAL NOT NULL DEFAULT 0,
					total REAL NOT NULL,
					sequence_number TEXT NOT NULL DEFAULT 'pending',
					branch TEXT NOT NULL DEFAULT 'pending',
					time_slot TEXT NOT NULL DEFAULT '',
					confirmed TEXT NOT NULL DEFAULT 'no',
					source_file TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX IF NOT EXISTS idx_payments_identifier ON payments(identifier)`,

				`CREATE TABLE IF NOT EXISTS meta (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					last_timestamp TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS confirmed (
					identifier TEXT NOT NULL,
					display_name TEXT NOT NULL,
					date TEXT NOT NULL,
					time TEXT NOT NULL,
					payment REAL NOT NULL,
					savings REAL NOT NULL DEFAULT 0,
					total REAL NOT NULL,
					sequence_number TEXT NOT NULL DEFAULT 'pending',
					branch TEXT NOT NULL DEFAULT 'pending',
					time_slot TEXT NOT NULL DEFAULT '',
					confirmed TEXT NOT NULL DEFAULT 'yes',
					source_file TEXT NOT NULL DEFAULT '',
					confirmed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add type, cycle, concept, deposit_code, weekly_payment and backfill",
		Up: func(tx *sql.Tx) error {
			for _, table := range []string{"payments", "confirmed"} {
				alters := []string{
					fmt.Sprintf(`ALTER TABLE %s ADD COLUMN type TEXT NOT NULL DEFAULT ''`, table),
					fmt.Sprintf(`ALTER TABLE %s ADD COLUMN cycle TEXT NOT NULL DEFAULT ''`, table),
					fmt.Sprintf(`ALTER TABLE %s ADD COLUMN concept TEXT NOT NULL DEFAULT '%s'`, table, model.ConceptPending),
					fmt.Sprintf(`ALTER TABLE %s ADD COLUMN deposit_code TEXT NOT NULL DEFAULT ''`, table),
					fmt.Sprintf(`ALTER TABLE %s ADD COLUMN weekly_payment TEXT NOT NULL DEFAULT '%s'`, table, model.WeeklyNotFound),
				}
				for _, query := range alters {
					if _, err := tx.Exec(query); err != nil {
						return fmt.Errorf("failed to alter %s: %w", table, err)
					}
				}
			}
			return backfillLegacyColumns(tx)
		},
	},
}

// backfillLegacyColumns fills the columns added in v2 for rows written by
// older ledgers: type inferred from savings, cycle normalized to "01" when
// invalid (a persisted row is never dropped), deposit code recomputed.
func backfillLegacyColumns(tx *sql.Tx) error {
	rows, err := tx.Query(`SELECT rowid, identifier, savings, cycle FROM payments`)
	if err != nil {
		return fmt.Errorf("failed to scan payments for backfill: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type fix struct {
		rowid       int64
		identifier  string
		kind        model.Kind
		cycle       string
		depositCode string
	}

	var fixes []fix
	for rows.Next() {
		var f fix
		var savings float64
		var cycle string
		if err := rows.Scan(&f.rowid, &f.identifier, &savings, &cycle); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		// Individuals never carry savings, so savings implies a group row.
		f.kind = model.KindIndividual
		if savings > 0 {
			f.kind = model.KindGroup
		}

		normalized, valid := normalize.Cycle(cycle)
		if !valid {
			slog.Warn("Normalizing invalid persisted cycle",
				"rowid", f.rowid, "cycle", cycle, "default", model.DefaultCycle)
			normalized = model.DefaultCycle
		}
		f.cycle = normalized

		f.identifier = normalize.ZeroPad(f.identifier, 6)
		f.depositCode = normalize.DepositCode(f.kind.TypeTag(), f.identifier, f.cycle)
		fixes = append(fixes, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate payments: %w", err)
	}

	stmt, err := tx.Prepare(`UPDATE payments SET identifier = ?, type = ?, cycle = ?, deposit_code = ? WHERE rowid = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare backfill update: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, f := range fixes {
		if _, err := stmt.Exec(f.identifier, string(f.kind), f.cycle, f.depositCode, f.rowid); err != nil {
			return fmt.Errorf("failed to backfill row %d: %w", f.rowid, err)
		}
	}
	return nil
}

// Migrate brings the ledger schema up to ExpectedSchemaVersion.
func (s *Store) Migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= version {
			continue
		}

		err := s.withWriteRetry(ctx, func() error {
			tx, txErr := s.db.BeginTx(ctx, nil)
			if txErr != nil {
				return fmt.Errorf("failed to begin migration transaction: %w", txErr)
			}
			defer func() { _ = tx.Rollback() }()

			if upErr := m.Up(tx); upErr != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, upErr)
			}
			if _, verErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); verErr != nil {
				return fmt.Errorf("failed to set schema version: %w", verErr)
			}
			return tx.Commit()
		})
		if err != nil {
			return err
		}

		slog.Debug("Applied ledger migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
