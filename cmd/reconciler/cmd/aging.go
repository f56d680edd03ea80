package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"claims-reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

var (
	agingProvider string
	agingAsOf     string
)

// agingCmd represents the aging command
var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Summarize outstanding claims by upload period",
	Long: `Aging groups the provider's outstanding claims by the period they were
uploaded in, oldest first, showing how long money has been owed.

Examples:
  reconciler aging --provider LIBERTY
  reconciler aging --provider LIBERTY --as-of 2025-08`,

	RunE: runAging,
}

func init() {
	rootCmd.AddCommand(agingCmd)

	agingCmd.Flags().StringVarP(&agingProvider, "provider", "p", "", "insurance provider code (required)")
	agingCmd.Flags().StringVar(&agingAsOf, "as-of", "", "period to age against, YYYY-MM (default: current month)")
	agingCmd.MarkFlagRequired("provider")
}

func runAging(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	if err := executeAging(context.Background()); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func executeAging(ctx context.Context) error {
	asOf := models.NewPeriod(time.Now().Year(), int(time.Now().Month()))
	if agingAsOf != "" {
		parsed, err := parsePeriodFlag(agingAsOf)
		if err != nil {
			return err
		}
		asOf = parsed
	}

	service, cleanup, err := openService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	buckets, err := service.Aging(ctx, agingProvider, asOf)
	if err != nil {
		return err
	}

	if len(buckets) == 0 {
		fmt.Printf("No outstanding claims for provider %s\n", agingProvider)
		return nil
	}

	fmt.Printf("%-7s  %4s  %6s  %14s  %14s\n", "PERIOD", "AGE", "CLAIMS", "BILLED", "PAID")
	for _, bucket := range buckets {
		fmt.Printf("%-7s  %4d  %6d  %14s  %14s\n",
			bucket.Period.String(), bucket.PeriodsOld, bucket.Count,
			bucket.TotalBilled.StringFixed(2), bucket.TotalPaid.StringFixed(2))
	}

	return nil
}
