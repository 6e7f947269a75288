package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hramos/chatledger/internal/cli"
)

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <amounts.csv>",
		Short: "Load the expected weekly payment table and backfill the ledger",
		Long: `Lookup loads the fixed-column export that maps group and individual codes
to their expected weekly payment, then backfills ledger rows still missing
one. The ledger must exist before amounts can be joined onto it.`,
		Args: cobra.ExactArgs(1),
		RunE: runLookup,
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := getEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	if !eng.LedgerExists() {
		return fmt.Errorf("no ledger exists yet; ingest a transcript first")
	}

	if !eng.LoadAmountLookup(ctx, args[0]) {
		return fmt.Errorf("failed to load amount lookup from %s", args[0])
	}

	fmt.Println(cli.FormatSuccess("Amount lookup loaded and ledger backfilled."))
	return nil
}
