package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	purgeProvider string
	purgeConfirm  bool
)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all data for a provider",
	Long: `Purge deletes every claim, remittance line and run record for a
provider. This is an administrative operation for decommissioning a
provider or recovering from a corrupted upload history; it cannot be
undone.

Examples:
  reconciler purge --provider LIBERTY --yes`,

	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)

	purgeCmd.Flags().StringVarP(&purgeProvider, "provider", "p", "", "insurance provider code (required)")
	purgeCmd.Flags().BoolVar(&purgeConfirm, "yes", false, "confirm the deletion")
	purgeCmd.MarkFlagRequired("provider")
}

func runPurge(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	if err := executePurge(context.Background()); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func executePurge(ctx context.Context) error {
	if !purgeConfirm {
		return fmt.Errorf("purge deletes all data for provider %s and cannot be undone; re-run with --yes to confirm", purgeProvider)
	}

	service, cleanup, err := openService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := service.Purge(ctx, purgeProvider); err != nil {
		return err
	}

	fmt.Printf("Removed all records for provider %s\n", purgeProvider)
	return nil
}
