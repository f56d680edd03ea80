package cmd

import (
	"context"
	"fmt"
	"os"

	"claims-reconciliation-service/cmd/reconciler/config"
	"claims-reconciliation-service/internal/parsers"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	remittanceFile     string
	remittanceProvider string
	remittancePeriod   string
	insurerFormat      string
)

// uploadRemittancesCmd represents the upload-remittances command
var uploadRemittancesCmd = &cobra.Command{
	Use:   "upload-remittances",
	Short: "Upload an insurer payment-advice statement",
	Long: `Upload-remittances stages an insurer's payment-advice statement for one
provider and filing period. The provider must have uploaded claims first;
a statement for a provider with no claims on record is rejected as an
operator mistake rather than reconciled into all orphans.

Examples:
  reconciler upload-remittances --provider LIBERTY --period 2025-06 --file statement.csv
  reconciler upload-remittances --provider JUBILEE --period 2025-06 --file advice.csv --insurer-format jubilee`,

	PreRunE: validateUploadRemittancesFlags,
	RunE:    runUploadRemittances,
}

func init() {
	rootCmd.AddCommand(uploadRemittancesCmd)

	uploadRemittancesCmd.Flags().StringVarP(&remittanceFile, "file", "f", "", "path to the statement CSV (required)")
	uploadRemittancesCmd.Flags().StringVarP(&remittanceProvider, "provider", "p", "", "insurance provider code (required)")
	uploadRemittancesCmd.Flags().StringVar(&remittancePeriod, "period", "", "filing period, YYYY-MM (required)")
	uploadRemittancesCmd.Flags().StringVar(&insurerFormat, "insurer-format", "", "predefined statement layout: standard, liberty, jubilee")

	uploadRemittancesCmd.MarkFlagRequired("file")
	uploadRemittancesCmd.MarkFlagRequired("provider")
	uploadRemittancesCmd.MarkFlagRequired("period")
}

func validateUploadRemittancesFlags(cmd *cobra.Command, args []string) error {
	if remittanceProvider == "" {
		return fmt.Errorf("provider is required")
	}
	if _, err := parsePeriodFlag(remittancePeriod); err != nil {
		return err
	}
	if _, err := config.CreateRemittanceParserConfig(insurerFormat); err != nil {
		return err
	}
	return validateFileExists(remittanceFile, "remittance statement file")
}

func runUploadRemittances(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	if err := executeUploadRemittances(context.Background()); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func executeUploadRemittances(ctx context.Context) error {
	period, err := parsePeriodFlag(remittancePeriod)
	if err != nil {
		return err
	}

	parserConfig, err := config.CreateRemittanceParserConfig(insurerFormat)
	if err != nil {
		return err
	}
	parser, err := parsers.NewRemittanceParser(parserConfig)
	if err != nil {
		return err
	}

	lines, stats, err := parser.ParseRemittancesWithContext(ctx, remittanceFile, remittanceProvider, period)
	if err != nil {
		return err
	}

	service, cleanup, err := openService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.UploadRemittances(ctx, remittanceProvider, period, lines)
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %d remittance lines for provider %s, period %s\n",
		result.Accepted, result.Provider, result.Period.String())
	if stats.HasErrors() {
		fmt.Printf("Skipped %d rows with errors (%s)\n", stats.ErrorCount, stats.String())
		if viper.GetBool("verbose") {
			for _, sample := range stats.GetSampleErrors(10) {
				fmt.Printf("  %s\n", sample)
			}
		}
	}

	return nil
}
