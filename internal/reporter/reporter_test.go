package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"claims-reconciliation-service/internal/matcher"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"

	"github.com/shopspring/decimal"
)

func sampleReport() *reconciler.RunReport {
	period := models.NewPeriod(2025, 6)
	serviceDate := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	matched := &models.Claim{
		ID:            "c1",
		Provider:      "LIBERTY",
		MemberNumber:  "6444720",
		InvoiceNumber: "CS01216000",
		ServiceDate:   serviceDate,
		BilledAmount:  decimal.RequireFromString("1500.00"),
		AmountPaid:    decimal.RequireFromString("1500.00"),
		Period:        period,
		Status:        models.StatusMatched,
	}
	unpaid := &models.Claim{
		ID:            "c2",
		Provider:      "LIBERTY",
		MemberNumber:  "7100233",
		InvoiceNumber: "CS01216001",
		ServiceDate:   serviceDate,
		BilledAmount:  decimal.RequireFromString("900.00"),
		AmountPaid:    decimal.Zero,
		Period:        period,
		Status:        models.StatusAwaitingPayment,
	}
	orphan := &models.RemittanceLine{
		ID:           "r2",
		Provider:     "LIBERTY",
		MemberNumber: "9999999",
		BillNumber:   "ZZ99",
		ServiceDate:  serviceDate,
		ClaimAmount:  decimal.RequireFromString("50.00"),
		PaidAmount:   decimal.RequireFromString("50.00"),
		Period:       period,
		Orphan:       true,
	}

	return &reconciler.RunReport{
		Run: &models.ReconciliationRun{
			ID:              "run-1",
			Provider:        "LIBERTY",
			Period:          period,
			CreatedAt:       time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
			ClaimsSearched:  2,
			RemittanceLines: 2,
			ExactMatches:    1,
			Orphans:         1,
		},
		Results: []*matcher.MatchResult{
			{
				Claim:      matched,
				Remittance: &models.RemittanceLine{ID: "r1"},
				MatchType:  models.MatchExact,
				Status:     models.StatusMatched,
				AmountPaid: matched.AmountPaid,
			},
			{
				Claim:      unpaid,
				MatchType:  models.MatchNone,
				Status:     models.StatusAwaitingPayment,
				AmountPaid: decimal.Zero,
			},
		},
		Orphans: []*models.RemittanceLine{orphan},
		Summary: matcher.Summary{
			TotalClaims:       2,
			TotalRemittances:  2,
			AutoMatched:       1,
			OrphanRemittances: 1,
			ClaimsSearched:    2,
			ClaimsMatched:     1,
		},
	}
}

func TestConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleReport(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"RECONCILIATION REPORT",
		"run-1",
		"LIBERTY",
		"2025-06",
		"=== SUMMARY ===",
		"=== ORPHAN REMITTANCE LINES ===",
		"=== STILL OUTSTANDING ===",
		"CS01216001",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "=== MANUAL REVIEW ===") {
		t.Error("no review-flagged claims, section should be absent")
	}
}

func TestJSONReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON, CSVDelimiter: ','})
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleReport(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	var decoded struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
		Summary struct {
			AutoMatched int `json:"autoMatched"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Run.ID != "run-1" {
		t.Errorf("run id = %q, want run-1", decoded.Run.ID)
	}
	if decoded.Summary.AutoMatched != 1 {
		t.Errorf("autoMatched = %d, want 1", decoded.Summary.AutoMatched)
	}
}

func TestCSVReport(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleReport(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	// Header, the outstanding claim, the orphan. The exact match is
	// excluded by default.
	if len(records) != 3 {
		t.Fatalf("expected 3 CSV records, got %d: %v", len(records), records)
	}
	if records[0][0] != "Type" {
		t.Errorf("first record should be the header row, got %v", records[0])
	}
	if records[1][1] != "7100233" {
		t.Errorf("outstanding claim member = %q, want 7100233", records[1][1])
	}
	if records[2][0] != "Orphan Remittance" {
		t.Errorf("last record type = %q, want Orphan Remittance", records[2][0])
	}
}

func TestCSVReportIncludesMatchedWhenConfigured(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	config.IncludeMatchedClaims = true
	generator, err := NewReportGenerator(config)
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(sampleReport(), &buf); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 CSV records with matched claims included, got %d", len(records))
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	if _, err := NewReportGenerator(&ReportConfig{Format: "xml"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestNilReportRejected(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}
	if err := generator.GenerateReport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected error for nil report")
	}
}
