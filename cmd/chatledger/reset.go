package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hramos/chatledger/internal/cli"
)

var resetForce bool

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the ledger and clear all persisted state",
		Long: `Reset deletes the ledger file, clears the session configuration
(identity overrides and last-processed slot) and removes the log artifact.

This is a destructive operation. Partial failure (for example, the ledger
file held open by a viewer) is reported but does not block the rest of the
cleanup.`,
		RunE: runReset,
	}

	cmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func runReset(_ *cobra.Command, _ []string) error {
	eng, err := getEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	if !eng.LedgerExists() && !resetForce {
		fmt.Fprintln(os.Stdout, "No ledger found. Only session state and logs will be cleared.")
	}

	if !resetForce {
		fmt.Fprint(os.Stdout, "This will delete the ledger and all persisted state. Continue? [y/N]: ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if response != "y" && response != "Y" {
			fmt.Fprintln(os.Stdout, "Reset canceled.")
			return nil
		}
	}

	if eng.ResetLedger() {
		fmt.Println(cli.FormatSuccess("All data cleared."))
		return nil
	}

	fmt.Println(cli.FormatWarning("Some artifacts could not be removed (the ledger may be open in a viewer). The rest was cleared."))
	return nil
}
