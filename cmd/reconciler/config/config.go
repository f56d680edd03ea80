// Package config builds component configurations from CLI inputs.
package config

import (
	"fmt"

	"claims-reconciliation-service/internal/matcher"
	"claims-reconciliation-service/internal/parsers"
	"claims-reconciliation-service/internal/reporter"
)

// CreateClaimParserConfig creates the claim parser configuration used by
// the CLI, with aliases covering the column names clinics actually export.
func CreateClaimParserConfig() (*parsers.ClaimParserConfig, error) {
	config := parsers.DefaultClaimParserConfig()
	config.ColumnAliases = map[string]string{
		"member":        "member_number",
		"member_no":     "member_number",
		"membership_no": "member_number",
		"patient":       "patient_name",
		"name":          "patient_name",
		"date":          "service_date",
		"visit_date":    "service_date",
		"invoice":       "invoice_number",
		"invoice_no":    "invoice_number",
		"bill_no":       "invoice_number",
		"amount":        "billed_amount",
		"gross_amount":  "billed_amount",
		"scheme":        "scheme_name",
		"benefit":       "benefit_description",
	}
	return config, nil
}

// CreateRemittanceParserConfig resolves a remittance parser configuration
// from an insurer format name, defaulting to the standard layout.
func CreateRemittanceParserConfig(insurerFormat string) (*parsers.RemittanceParserConfig, error) {
	if insurerFormat == "" {
		return parsers.StandardRemittanceConfig, nil
	}

	config := parsers.GetRemittanceConfig(insurerFormat)
	if config == nil {
		available := make([]string, 0)
		for _, c := range parsers.ListAvailableRemittanceConfigs() {
			available = append(available, c.Name)
		}
		return nil, fmt.Errorf("unknown insurer format %q, available formats: %v", insurerFormat, available)
	}
	return config, nil
}

// CreateMatcherConfig builds the matching configuration. Strict mode
// disables the near-amount fallback deltas so only exact date+amount keys
// pair up.
func CreateMatcherConfig(strict bool, deltas []int64) *matcher.Config {
	if strict {
		return matcher.StrictConfig()
	}

	config := matcher.DefaultConfig()
	if len(deltas) > 0 {
		config.AmountDeltas = deltas
	}
	return config
}

// CreateReportConfig creates a report configuration for the specified
// output format.
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	switch format {
	case "", "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.IncludeMatchedClaims = true
	default:
		return nil, fmt.Errorf("unsupported output format %q, use console, json or csv", format)
	}

	return config, nil
}
