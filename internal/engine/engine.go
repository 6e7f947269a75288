// Package engine wires the extraction pipeline, session state, amount lookup
// and ledger store behind the entry points the shell consumes.
package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hramos/chatledger/internal/chat"
	"github.com/hramos/chatledger/internal/common"
	"github.com/hramos/chatledger/internal/extract"
	"github.com/hramos/chatledger/internal/identity"
	"github.com/hramos/chatledger/internal/ledger"
	"github.com/hramos/chatledger/internal/lookup"
	"github.com/hramos/chatledger/internal/model"
	"github.com/hramos/chatledger/internal/normalize"
	"github.com/hramos/chatledger/internal/reconcile"
	"github.com/hramos/chatledger/internal/session"
)

// Config locates the artifacts the engine owns.
type Config struct {
	LedgerPath string
	ConfigPath string
	LogPath    string
}

// Engine orchestrates single-threaded, batch-oriented processing. One file
// is processed start to finish before the next; the ledger store is the sole
// shared mutable resource and is opened per operation.
type Engine struct {
	cfg     Config
	session *session.Session
	table   *lookup.Table

	// pendingWatermark is the newest transcript timestamp seen by ingest,
	// held back until the entries actually reach the ledger.
	pendingWatermark string
}

// New creates an engine and loads the session state.
func New(cfg Config) (*Engine, error) {
	s, err := session.Load(cfg.ConfigPath)
	if err != nil {
		return nil, common.NewUserError("could not load session config", err)
	}
	return &Engine{cfg: cfg, session: s}, nil
}

// Session exposes the loaded session state.
func (e *Engine) Session() *session.Session {
	return e.session
}

// LedgerExists reports whether the ledger artifact is present. The shell
// uses it to gate the amount-lookup workflow.
func (e *Engine) LedgerExists() bool {
	return ledger.Exists(e.cfg.LedgerPath)
}

// IngestPaymentFile extracts payment entries from one exported transcript.
// The watermark makes re-processing an overlapping export idempotent:
// an already-covered file yields no entries and one duplicate. Parse
// failures never escape; they are logged and counted.
func (e *Engine) IngestPaymentFile(ctx context.Context, path string) (entries []model.PaymentEntry, errorCount, duplicateCount int) {
	lines, err := readLines(path)
	if err != nil {
		common.LogError(err, "Failed to read transcript", common.Fields{"path": path})
		return nil, 1, 0
	}

	lastTimestamp := chat.LastTimestamp(lines)
	if lastTimestamp != "" && e.LedgerExists() {
		stored, err := e.storedWatermark(ctx)
		if err != nil {
			common.LogError(err, "Failed to read watermark", common.Fields{"path": path})
			return nil, 1, 0
		}
		if chat.AlreadyProcessed(lastTimestamp, stored) {
			slog.Info("Transcript already processed", "path", path, "watermark", stored)
			return nil, 0, 1
		}
	}

	extractor := extract.New(identity.NewResolver(e.session), e.weeklyFunc())
	sourceFile := filepath.Base(path)

	seen := make(map[string]bool)
	for msg := range chat.Messages(lines) {
		for _, entry := range extractor.FromMessage(msg, sourceFile) {
			key := entry.BatchKey()
			if seen[key] {
				duplicateCount++
				continue
			}
			seen[key] = true
			entries = append(entries, entry)
		}
	}

	// The watermark is advanced only when the entries are committed; a dry
	// run must never gate a later real ingest of the same file.
	if len(entries) > 0 && lastTimestamp > e.pendingWatermark {
		e.pendingWatermark = lastTimestamp
	}

	slog.Info("Ingested transcript",
		"path", path,
		"entries", len(entries),
		"errors", errorCount,
		"duplicates", duplicateCount)
	return entries, errorCount, duplicateCount
}

// CommitEntries merges extracted entries into the ledger and returns the new
// total row count, or 0 on failure. Committing the same entries twice never
// doubles the row count: existing rows win under the dedup key. A successful
// commit advances the watermark held back by ingest.
func (e *Engine) CommitEntries(ctx context.Context, entries []model.PaymentEntry) int {
	if len(entries) == 0 {
		return 0
	}

	store, err := e.openStore(ctx)
	if err != nil {
		common.LogError(err, "Failed to open ledger for commit", nil)
		return 0
	}
	defer func() { _ = store.Close() }()

	total, err := store.MergeEntries(ctx, entries)
	if err != nil {
		common.LogError(err, "Failed to merge entries into ledger", common.Fields{"entries": len(entries)})
		return 0
	}

	if e.pendingWatermark != "" {
		if err := store.SetWatermark(ctx, e.pendingWatermark); err != nil {
			// The rows are committed; a stale watermark only means the next
			// ingest re-extracts and dedups against them.
			common.LogError(err, "Failed to advance watermark", nil)
		} else {
			e.pendingWatermark = ""
			e.recordProcessedSlot()
		}
	}

	slog.Info("Committed entries to ledger", "entries", len(entries), "total_rows", total)
	return total
}

// IngestConfirmationFile matches confirmation records against the ledger.
// Unmatched confirmations come back as alert strings, never as errors.
func (e *Engine) IngestConfirmationFile(ctx context.Context, path string) (confirmed []model.LedgerRow, alerts []string) {
	lines, err := readLines(path)
	if err != nil {
		return nil, []string{fmt.Sprintf("could not read confirmation file: %v", err)}
	}

	if !e.LedgerExists() {
		return nil, []string{"no ledger exists to confirm against"}
	}

	// Confirmations bypass the watermark gate; the same file may be
	// re-applied safely because matched rows are already confirmed.
	extractor := extract.New(identity.NewResolver(e.session), e.weeklyFunc())
	sourceFile := filepath.Base(path)

	var confirmations []model.PaymentEntry
	seen := make(map[string]bool)
	for msg := range chat.Messages(lines) {
		for _, entry := range extractor.FromMessage(msg, sourceFile) {
			key := entry.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			confirmations = append(confirmations, entry)
		}
	}

	if len(confirmations) == 0 {
		return nil, []string{"no valid confirmation records found in file"}
	}

	store, err := e.openStore(ctx)
	if err != nil {
		return nil, []string{fmt.Sprintf("could not open ledger: %v", err)}
	}
	defer func() { _ = store.Close() }()

	confirmed, alerts, err = reconcile.NewService(store).Reconcile(ctx, confirmations)
	if err != nil {
		alerts = append(alerts, fmt.Sprintf("reconciliation stopped early: %v", err))
	}

	slog.Info("Processed confirmation file",
		"path", path,
		"confirmed", len(confirmed),
		"alerts", len(alerts))
	return confirmed, alerts
}

// LoadAmountLookup rebuilds the weekly-amount table from a fixed-column
// export and backfills ledger rows still missing a weekly payment. Returns
// false when the file is unreadable or malformed; no partial table is kept.
func (e *Engine) LoadAmountLookup(ctx context.Context, path string) bool {
	table, err := lookup.Load(path)
	if err != nil {
		common.LogError(err, "Failed to load amount lookup", common.Fields{"path": path})
		return false
	}
	e.table = table

	if e.LedgerExists() {
		store, err := e.openStore(ctx)
		if err != nil {
			common.LogError(err, "Failed to open ledger for weekly backfill", nil)
			return true // the table itself loaded fine
		}
		defer func() { _ = store.Close() }()

		updated, err := store.BackfillWeeklyPayments(ctx, e.table.Amount)
		if err != nil {
			common.LogError(err, "Failed to backfill weekly payments", nil)
		} else if updated > 0 {
			slog.Info("Backfilled weekly payments", "rows", updated)
		}
	}

	return true
}

// WeeklyPayment returns the expected weekly amount for an identifier, or the
// "not found" sentinel when no table is loaded or no row matches.
func (e *Engine) WeeklyPayment(identifier string, kind model.Kind) string {
	return e.table.Amount(normalize.ZeroPad(identifier, 6), kind)
}

// ResetLedger deletes the ledger file and clears session state and the log
// artifact. Partial failure is reported but does not block the remaining
// cleanup.
func (e *Engine) ResetLedger() bool {
	ok := true

	if e.LedgerExists() {
		if err := os.Remove(e.cfg.LedgerPath); err != nil {
			common.LogError(err, "Failed to delete ledger file (is it open in a viewer?)",
				common.Fields{"path": e.cfg.LedgerPath})
			ok = false
		} else {
			// WAL sidecars go with the main file.
			_ = os.Remove(e.cfg.LedgerPath + "-wal")
			_ = os.Remove(e.cfg.LedgerPath + "-shm")
		}
	}

	if err := e.session.Reset(); err != nil {
		common.LogError(err, "Failed to reset session config", nil)
		ok = false
	}

	if e.cfg.LogPath != "" {
		if err := os.Remove(e.cfg.LogPath); err != nil && !os.IsNotExist(err) {
			common.LogError(err, "Failed to remove log artifact", common.Fields{"path": e.cfg.LogPath})
			ok = false
		}
	}

	e.table = nil
	e.pendingWatermark = ""
	return ok
}

// openStore opens the ledger and brings its schema up to date.
func (e *Engine) openStore(ctx context.Context) (*ledger.Store, error) {
	store, err := ledger.Open(e.cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (e *Engine) storedWatermark(ctx context.Context) (string, error) {
	store, err := e.openStore(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()
	return store.Watermark(ctx)
}

// recordProcessedSlot notes which time slot this ingest ran in.
func (e *Engine) recordProcessedSlot() {
	e.session.SetLastProcessedSlot(normalize.TimeSlot(time.Now().Hour()))
	if err := e.session.Save(); err != nil {
		common.LogError(err, "Failed to save session config", nil)
	}
}

func (e *Engine) weeklyFunc() extract.WeeklyFunc {
	if e.table == nil {
		return nil
	}
	return e.table.Amount
}

// readLines loads a transcript wholesale; exports are static batches, never
// streams.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
