package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var runsProvider string

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List reconciliation runs for a provider",
	Long: `Runs lists the provider's reconciliation run history, newest first.
Every committed run is retained for audit, including runs superseded by a
later re-upload of the same period.

Examples:
  reconciler runs --provider LIBERTY`,

	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringVarP(&runsProvider, "provider", "p", "", "insurance provider code (required)")
	runsCmd.MarkFlagRequired("provider")
}

func runRuns(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	if err := executeRuns(context.Background()); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func executeRuns(ctx context.Context) error {
	service, cleanup, err := openService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := service.ListRuns(ctx, runsProvider)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Printf("No reconciliation runs recorded for provider %s\n", runsProvider)
		return nil
	}

	fmt.Printf("%-36s  %-7s  %-20s  %5s  %5s  %5s  %6s\n",
		"RUN", "PERIOD", "CREATED", "EXACT", "PART", "ORPH", "UNPAID")
	for _, run := range runs {
		fmt.Printf("%-36s  %-7s  %-20s  %5d  %5d  %5d  %6d\n",
			run.ID, run.Period.String(), run.CreatedAt.Format(time.RFC3339),
			run.ExactMatches, run.PartialMatches, run.Orphans, run.UnpaidClaims)
	}

	return nil
}
