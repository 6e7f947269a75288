package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hramos/chatledger/internal/cli"
	"github.com/hramos/chatledger/internal/model"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <transcript.txt>...",
		Short: "Extract payments from exported transcripts and merge them into the ledger",
		Long: `Ingest parses one or more exported chat transcripts, extracts payment
records, deduplicates them against the ledger and merges the survivors.

Files whose last message timestamp is already covered by the stored watermark
are skipped, so re-ingesting an overlapping export is safe.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("dry-run", false, "Extract and report without writing to the ledger")
	_ = viper.BindPFlag("ingest.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := getEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.Default(int64(len(args)), "ingesting transcripts")
	}

	var allEntries []model.PaymentEntry
	totalErrors, totalDuplicates := 0, 0

	for _, path := range args {
		entries, errorCount, duplicateCount := eng.IngestPaymentFile(ctx, path)
		allEntries = append(allEntries, entries...)
		totalErrors += errorCount
		totalDuplicates += duplicateCount
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if viper.GetBool("ingest.dry_run") {
		slog.Info(cli.FormatWarning("Dry run mode - not writing to ledger"))
		displayEntrySummary(allEntries, totalErrors, totalDuplicates, 0)
		return nil
	}

	totalRows := 0
	if len(allEntries) > 0 {
		totalRows = eng.CommitEntries(ctx, allEntries)
		if totalRows == 0 {
			return fmt.Errorf("failed to commit %d entries to the ledger", len(allEntries))
		}
	}

	displayEntrySummary(allEntries, totalErrors, totalDuplicates, totalRows)
	return nil
}

func displayEntrySummary(entries []model.PaymentEntry, errorCount, duplicateCount, totalRows int) {
	groups, individuals := 0, 0
	var payments, savings float64
	for _, e := range entries {
		if e.Kind == model.KindGroup {
			groups++
		} else {
			individuals++
		}
		payments += e.Payment
		savings += e.Savings
	}

	content := fmt.Sprintf(`Extracted entries: %d
  Group payments: %d
  Individual payments: %d
Payments total: $%.2f
Savings total: $%.2f
Errors: %d
Duplicates skipped: %d
`, len(entries), groups, individuals, payments, savings, errorCount, duplicateCount)

	if totalRows > 0 {
		content += fmt.Sprintf("\nLedger now holds %d rows.\n", totalRows)
	}

	fmt.Println(cli.RenderBox("Ingest Summary", content))
}
