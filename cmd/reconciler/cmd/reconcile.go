package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
)

// Flags for the reconcile command
var (
	reconcileProvider string
	reconcilePeriod   string
	outputFormat      string
	outputFile        string
	strictMatching    bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run matching for a provider and filing period",
	Long: `Reconcile pairs the provider's uploaded remittance statement with its
outstanding claims and commits the results as one run.

The claim pool spans every filing period: a claim uploaded in March that
went unpaid can still be settled by a statement filed in June. Each claim
is consumed by at most one payment line; payment lines that match nothing
are reported as orphans.

Examples:
  # Run matching and print the report
  reconciler reconcile --provider LIBERTY --period 2025-06

  # JSON report to a file
  reconciler reconcile --provider LIBERTY --period 2025-06 \
    --output-format json --output-file run.json

  # Disable the near-amount fallback (exact date+amount keys only)
  reconciler reconcile --provider LIBERTY --period 2025-06 --strict`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&reconcileProvider, "provider", "p", "", "insurance provider code (required)")
	reconcileCmd.Flags().StringVar(&reconcilePeriod, "period", "", "filing period, YYYY-MM (required)")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&strictMatching, "strict", false, "disable near-amount fallback matching")

	reconcileCmd.MarkFlagRequired("provider")
	reconcileCmd.MarkFlagRequired("period")
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if reconcileProvider == "" {
		return fmt.Errorf("provider is required")
	}
	if _, err := parsePeriodFlag(reconcilePeriod); err != nil {
		return err
	}
	if _, err := config.CreateReportConfig(outputFormat); err != nil {
		return err
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	if err := executeReconcile(context.Background()); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func executeReconcile(ctx context.Context) error {
	period, err := parsePeriodFlag(reconcilePeriod)
	if err != nil {
		return err
	}

	service, cleanup, err := openService(strictMatching)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := service.Reconcile(ctx, reconcileProvider, period)
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	var writer io.Writer = os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	if err := generator.GenerateReport(report, writer); err != nil {
		return err
	}

	if outputFile != "" {
		fmt.Printf("Run %s committed; report written to %s\n", report.Run.ID, outputFile)
	}

	return nil
}
