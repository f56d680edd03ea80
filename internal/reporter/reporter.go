// Package reporter renders reconciliation run reports for operators.
//
// Supported output formats:
//   - Console: human-readable summary for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: per-claim detail for spreadsheet follow-up
//
// The console report leads with the run summary, then lists the rows an
// operator actually has to act on: manual-review claims, orphan remittance
// lines and duplicate composite keys.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"claims-reconciliation-service/internal/matcher"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeMatchedClaims     bool `json:"include_matched_claims"`
	IncludeOutstandingClaims bool `json:"include_outstanding_claims"`
	IncludeOrphans           bool `json:"include_orphans"`
	IncludeDuplicateGroups   bool `json:"include_duplicate_groups"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	SortByAmount bool `json:"sort_by_amount"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                   FormatConsole,
		IncludeMatchedClaims:     false,
		IncludeOutstandingClaims: true,
		IncludeOrphans:           true,
		IncludeDuplicateGroups:   true,
		CSVDelimiter:             ',',
		CSVHeaders:               true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders RunReports in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the specified
// configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a run report to the provided writer
func (rg *ReportGenerator) GenerateReport(report *reconciler.RunReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("run report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(report *reconciler.RunReport, writer io.Writer) error {
	run := report.Run

	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run:       %s\n", run.ID)
	fmt.Fprintf(writer, "Provider:  %s\n", run.Provider)
	fmt.Fprintf(writer, "Period:    %s\n", run.Period.String())
	fmt.Fprintf(writer, "Generated: %s\n\n", run.CreatedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummary(report, writer)
	fmt.Fprintf(writer, "\n")

	if review := rg.manualReviewResults(report); len(review) > 0 {
		fmt.Fprintf(writer, "=== MANUAL REVIEW ===\n")
		for _, mr := range review {
			note := "zero-billed claim"
			if mr.ReviewFlag {
				note = fmt.Sprintf("paid %s exceeds billed %s",
					mr.AmountPaid.StringFixed(2), mr.Claim.BilledAmount.StringFixed(2))
			}
			fmt.Fprintf(writer, "  %-20s %-12s %s\n", mr.Claim.MemberNumber, mr.Claim.InvoiceNumber, note)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeOrphans && len(report.Orphans) > 0 {
		fmt.Fprintf(writer, "=== ORPHAN REMITTANCE LINES ===\n")
		fmt.Fprintf(writer, "Lines paid by the insurer with no corresponding claim: %d\n\n", len(report.Orphans))
		rg.printOrphans(report.Orphans, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeOutstandingClaims {
		outstanding := rg.outstandingResults(report)
		if len(outstanding) > 0 {
			fmt.Fprintf(writer, "=== STILL OUTSTANDING ===\n")
			fmt.Fprintf(writer, "Claims not settled by this statement: %d\n\n", len(outstanding))
			for _, mr := range outstanding {
				fmt.Fprintf(writer, "  %-20s %-12s %-12s billed %s\n",
					mr.Claim.MemberNumber, mr.Claim.InvoiceNumber,
					mr.Status.String(), mr.Claim.BilledAmount.StringFixed(2))
			}
			fmt.Fprintf(writer, "\n")
		}
	}

	if rg.config.IncludeDuplicateGroups && len(report.DuplicateGroups) > 0 {
		fmt.Fprintf(writer, "=== DUPLICATE CLAIM KEYS ===\n")
		fmt.Fprintf(writer, "Composite keys shared by multiple claims (matched first-in-first-out):\n")
		for _, group := range report.DuplicateGroups {
			fmt.Fprintf(writer, "  %s (%d claims)\n", group.Key, len(group.ClaimIDs))
		}
	}

	return nil
}

func (rg *ReportGenerator) generateJSONReport(report *reconciler.RunReport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) generateCSVReport(report *reconciler.RunReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Type",
			"Member_Number",
			"Invoice_Number",
			"Service_Date",
			"Billed_Amount",
			"Paid_Amount",
			"Status",
			"Match_Type",
			"Notes",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, mr := range report.Results {
		if mr.Remittance == nil && !rg.config.IncludeOutstandingClaims {
			continue
		}
		if mr.Remittance != nil && mr.Status == models.StatusMatched && !mr.ReviewFlag && !rg.config.IncludeMatchedClaims {
			continue
		}

		notes := ""
		if mr.ReviewFlag {
			notes = "overpayment"
		} else if mr.Remittance == nil {
			notes = "no payment on this statement"
		}

		record := []string{
			"Claim",
			mr.Claim.MemberNumber,
			mr.Claim.InvoiceNumber,
			mr.Claim.ServiceDate.Format("2006-01-02"),
			mr.Claim.BilledAmount.StringFixed(2),
			mr.AmountPaid.StringFixed(2),
			mr.Status.String(),
			mr.MatchType.String(),
			notes,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write claim record: %w", err)
		}
	}

	if rg.config.IncludeOrphans {
		for _, line := range report.Orphans {
			record := []string{
				"Orphan Remittance",
				line.MemberNumber,
				firstNonEmpty(line.BillNumber, line.ClaimNumber),
				line.ServiceDate.Format("2006-01-02"),
				line.ClaimAmount.StringFixed(2),
				line.PaidAmount.StringFixed(2),
				"",
				models.MatchNone.String(),
				"no corresponding claim found",
			}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write orphan record: %w", err)
			}
		}
	}

	return nil
}

func (rg *ReportGenerator) printSummary(report *reconciler.RunReport, writer io.Writer) {
	s := report.Summary

	fmt.Fprintf(writer, "Claims searched:    %d\n", s.ClaimsSearched)
	fmt.Fprintf(writer, "Remittance lines:   %d\n", s.TotalRemittances)
	fmt.Fprintf(writer, "\n")
	fmt.Fprintf(writer, "Exact matches:      %d (%.1f%%)\n",
		s.AutoMatched, percentage(s.AutoMatched, s.TotalRemittances))
	fmt.Fprintf(writer, "Partial matches:    %d (%.1f%%)\n",
		s.PartialMatched, percentage(s.PartialMatched, s.TotalRemittances))
	fmt.Fprintf(writer, "Orphan lines:       %d (%.1f%%)\n",
		s.OrphanRemittances, percentage(s.OrphanRemittances, s.TotalRemittances))
	fmt.Fprintf(writer, "\n")
	fmt.Fprintf(writer, "Claims settled:     %d\n", s.ClaimsMatched)
	fmt.Fprintf(writer, "Manual review:      %d\n", s.ManualReview)
	fmt.Fprintf(writer, "Still outstanding:  %d\n", s.UnpaidClaims)
}

func (rg *ReportGenerator) printOrphans(orphans []*models.RemittanceLine, writer io.Writer) {
	sorted := make([]*models.RemittanceLine, len(orphans))
	copy(sorted, orphans)
	if rg.config.SortByAmount {
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].PaidAmount.GreaterThan(sorted[j].PaidAmount)
		})
	}

	for _, line := range sorted {
		ref := firstNonEmpty(line.BillNumber, line.ClaimNumber, "-")
		fmt.Fprintf(writer, "  %-20s %-12s %-12s paid %s\n",
			line.MemberNumber, ref,
			line.ServiceDate.Format("2006-01-02"),
			line.PaidAmount.StringFixed(2))
	}
}

func (rg *ReportGenerator) manualReviewResults(report *reconciler.RunReport) []*resultRow {
	var rows []*resultRow
	for _, mr := range report.Results {
		if mr.Status == models.StatusManualReview || mr.ReviewFlag {
			rows = append(rows, mr)
		}
	}
	return rows
}

func (rg *ReportGenerator) outstandingResults(report *reconciler.RunReport) []*resultRow {
	var rows []*resultRow
	for _, mr := range report.Results {
		if mr.Remittance == nil {
			rows = append(rows, mr)
		}
	}
	return rows
}

type resultRow = matcher.MatchResult

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
