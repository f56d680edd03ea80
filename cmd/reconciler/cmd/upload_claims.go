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
	claimsFile     string
	claimsProvider string
	claimsPeriod   string
)

// uploadClaimsCmd represents the upload-claims command
var uploadClaimsCmd = &cobra.Command{
	Use:   "upload-claims",
	Short: "Upload a clinic claim export for a filing period",
	Long: `Upload-claims stages a clinic's claim export for one provider and
filing period. Claims start in awaiting-payment and become the pool that
remittance statements are matched against.

Re-uploading the same provider and period replaces claims that have never
been through a reconciliation run; claims already settled or reviewed by a
run are kept for audit.

Examples:
  reconciler upload-claims --provider LIBERTY --period 2025-06 --file claims_june.csv`,

	PreRunE: validateUploadClaimsFlags,
	RunE:    runUploadClaims,
}

func init() {
	rootCmd.AddCommand(uploadClaimsCmd)

	uploadClaimsCmd.Flags().StringVarP(&claimsFile, "file", "f", "", "path to the claim export CSV (required)")
	uploadClaimsCmd.Flags().StringVarP(&claimsProvider, "provider", "p", "", "insurance provider code (required)")
	uploadClaimsCmd.Flags().StringVar(&claimsPeriod, "period", "", "filing period, YYYY-MM (required)")

	uploadClaimsCmd.MarkFlagRequired("file")
	uploadClaimsCmd.MarkFlagRequired("provider")
	uploadClaimsCmd.MarkFlagRequired("period")
}

func validateUploadClaimsFlags(cmd *cobra.Command, args []string) error {
	if claimsProvider == "" {
		return fmt.Errorf("provider is required")
	}
	if _, err := parsePeriodFlag(claimsPeriod); err != nil {
		return err
	}
	return validateFileExists(claimsFile, "claim export file")
}

func runUploadClaims(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	if err := executeUploadClaims(context.Background()); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func executeUploadClaims(ctx context.Context) error {
	period, err := parsePeriodFlag(claimsPeriod)
	if err != nil {
		return err
	}

	parserConfig, err := config.CreateClaimParserConfig()
	if err != nil {
		return err
	}
	parser, err := parsers.NewClaimParser(parserConfig)
	if err != nil {
		return err
	}

	claims, stats, err := parser.ParseClaimsWithContext(ctx, claimsFile, claimsProvider, period)
	if err != nil {
		return err
	}

	service, cleanup, err := openService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := service.UploadClaims(ctx, claimsProvider, period, claims)
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %d claims for provider %s, period %s\n",
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
