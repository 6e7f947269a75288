package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hramos/chatledger/internal/cli"
)

func confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <transcript.txt>",
		Short: "Reconcile confirmation messages against the ledger",
		Long: `Confirm parses a transcript of confirmation messages and matches each
record against ledger rows by type, identifier, name and amount. Matched rows
are marked confirmed and copied to the confirmed table; unmatched records are
reported as alerts.`,
		Args: cobra.ExactArgs(1),
		RunE: runConfirm,
	}
}

func runConfirm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := getEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	confirmed, alerts := eng.IngestConfirmationFile(ctx, args[0])

	content := fmt.Sprintf("Confirmed payments: %d\n", len(confirmed))
	for _, row := range confirmed {
		content += fmt.Sprintf("  %s %s  $%.2f (savings $%.2f)\n",
			row.Identifier, row.DisplayName, row.Payment, row.Savings)
	}
	fmt.Println(cli.RenderBox("Confirmation Summary", content))

	if len(alerts) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d alert(s):", len(alerts))))
		for _, alert := range alerts {
			fmt.Println(cli.FormatWarning("  • " + alert))
		}
	}

	return nil
}
