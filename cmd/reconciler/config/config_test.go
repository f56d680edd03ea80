package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/parsers"
	"claims-reconciliation-service/internal/reporter"
)

func TestCreateClaimParserConfig(t *testing.T) {
	config, err := CreateClaimParserConfig()
	if err != nil {
		t.Fatalf("CreateClaimParserConfig failed: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("generated config should validate: %v", err)
	}
	// Spreadsheet column aliases resolve to the canonical names
	if got := config.ColumnAliases["bill_no"]; got != "invoice_number" {
		t.Errorf("bill_no alias = %q, want invoice_number", got)
	}
	if got := config.ColumnAliases["membership_no"]; got != "member_number" {
		t.Errorf("membership_no alias = %q, want member_number", got)
	}
}

func TestClaimParserConfigParsesVariantHeaders(t *testing.T) {
	content := `member_no,visit_date,gross_amount,invoice_no
6444720,2025-06-15,1500.00,CS012160-00
`
	path := filepath.Join(t.TempDir(), "claims.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	config, err := CreateClaimParserConfig()
	if err != nil {
		t.Fatalf("CreateClaimParserConfig failed: %v", err)
	}
	parser, err := parsers.NewClaimParser(config)
	if err != nil {
		t.Fatalf("NewClaimParser failed: %v", err)
	}

	claims, stats, err := parser.ParseClaims(path, "LIBERTY", models.NewPeriod(2025, 6))
	if err != nil {
		t.Fatalf("variant headers must parse through the CLI aliases: %v", err)
	}
	if stats.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", stats.GetSampleErrors(5))
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	if claims[0].MemberNumber != "6444720" {
		t.Errorf("member = %q, want 6444720", claims[0].MemberNumber)
	}
	if claims[0].InvoiceNumber != "CS01216000" {
		t.Errorf("invoice = %q, want CS01216000", claims[0].InvoiceNumber)
	}
}

func TestCreateRemittanceParserConfig(t *testing.T) {
	config, err := CreateRemittanceParserConfig("")
	if err != nil {
		t.Fatalf("empty format failed: %v", err)
	}
	if config != parsers.StandardRemittanceConfig {
		t.Error("empty format should select the standard config")
	}

	config, err = CreateRemittanceParserConfig("liberty")
	if err != nil {
		t.Fatalf("liberty format failed: %v", err)
	}
	if config.Name != "Liberty" {
		t.Errorf("config name = %q, want Liberty", config.Name)
	}
}

func TestCreateRemittanceParserConfigUnknownFormat(t *testing.T) {
	_, err := CreateRemittanceParserConfig("acme")
	if err == nil {
		t.Fatal("expected error for unknown insurer format")
	}
	// The error must tell the operator what formats exist
	for _, name := range []string{"Standard", "Liberty", "Jubilee"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should list format %s", err.Error(), name)
		}
	}
}

func TestCreateMatcherConfig(t *testing.T) {
	strict := CreateMatcherConfig(true, nil)
	if len(strict.AmountDeltas) != 1 || strict.AmountDeltas[0] != 0 {
		t.Errorf("strict deltas = %v, want only the exact delta", strict.AmountDeltas)
	}

	relaxed := CreateMatcherConfig(false, nil)
	if len(relaxed.AmountDeltas) < 2 {
		t.Errorf("default deltas = %v, want near-amount fallbacks", relaxed.AmountDeltas)
	}

	custom := CreateMatcherConfig(false, []int64{0, 500})
	if len(custom.AmountDeltas) != 2 || custom.AmountDeltas[1] != 500 {
		t.Errorf("custom deltas = %v, want [0 500]", custom.AmountDeltas)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format string
		want   reporter.OutputFormat
	}{
		{"", reporter.FormatConsole},
		{"console", reporter.FormatConsole},
		{"json", reporter.FormatJSON},
		{"csv", reporter.FormatCSV},
	}
	for _, tt := range tests {
		config, err := CreateReportConfig(tt.format)
		if err != nil {
			t.Fatalf("CreateReportConfig(%q) failed: %v", tt.format, err)
		}
		if config.Format != tt.want {
			t.Errorf("CreateReportConfig(%q).Format = %s, want %s", tt.format, config.Format, tt.want)
		}
	}

	if _, err := CreateReportConfig("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
