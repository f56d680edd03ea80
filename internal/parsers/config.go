package parsers

import (
	"fmt"
	"strings"
)

// ClaimParserConfig holds column mapping for clinic claim export files.
type ClaimParserConfig struct {
	MemberColumn      string            `json:"member_column"`
	PatientColumn     string            `json:"patient_column"`
	ServiceDateColumn string            `json:"service_date_column"`
	InvoiceColumn     string            `json:"invoice_column"`
	ClaimTypeColumn   string            `json:"claim_type_column"`
	SchemeColumn      string            `json:"scheme_column"`
	BenefitColumn     string            `json:"benefit_column"`
	AmountColumn      string            `json:"amount_column"`
	CurrencyColumn    string            `json:"currency_column"`
	HasHeader         bool              `json:"has_header"`
	Delimiter         rune              `json:"delimiter"`

	// ColumnAliases maps alternate header spellings found in real exports
	// to the canonical column names above, e.g. "member_no" to
	// "member_number". Resolved while reading the header row.
	ColumnAliases map[string]string `json:"column_aliases,omitempty"`
}

// Validate checks if the claim parser configuration is valid
func (cpc *ClaimParserConfig) Validate() error {
	if strings.TrimSpace(cpc.MemberColumn) == "" {
		return fmt.Errorf("member column cannot be empty")
	}
	if strings.TrimSpace(cpc.ServiceDateColumn) == "" {
		return fmt.Errorf("service date column cannot be empty")
	}
	if strings.TrimSpace(cpc.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	return nil
}

// GetColumnName maps a standard field name to the configured column name
func (cpc *ClaimParserConfig) GetColumnName(standardName string) string {
	switch standardName {
	case "member":
		return cpc.MemberColumn
	case "patient":
		return cpc.PatientColumn
	case "service_date":
		return cpc.ServiceDateColumn
	case "invoice":
		return cpc.InvoiceColumn
	case "claim_type":
		return cpc.ClaimTypeColumn
	case "scheme":
		return cpc.SchemeColumn
	case "benefit":
		return cpc.BenefitColumn
	case "amount":
		return cpc.AmountColumn
	case "currency":
		return cpc.CurrencyColumn
	default:
		return standardName
	}
}

// DefaultClaimParserConfig matches the standard clinic export format.
func DefaultClaimParserConfig() *ClaimParserConfig {
	return &ClaimParserConfig{
		MemberColumn:      "member_number",
		PatientColumn:     "patient_name",
		ServiceDateColumn: "service_date",
		InvoiceColumn:     "invoice_number",
		ClaimTypeColumn:   "claim_type",
		SchemeColumn:      "scheme_name",
		BenefitColumn:     "benefit_description",
		AmountColumn:      "billed_amount",
		CurrencyColumn:    "currency",
		HasHeader:         true,
		Delimiter:         ',',
		ColumnAliases:     make(map[string]string),
	}
}

// RemittanceParserConfig holds column mapping for insurer payment-advice
// statements. Each insurer names columns differently; predefined configs
// cover the common formats.
type RemittanceParserConfig struct {
	Name               string            `json:"name"`
	MemberColumn       string            `json:"member_column"`
	EmployerColumn     string            `json:"employer_column"`
	PatientColumn      string            `json:"patient_column"`
	ClaimNumberColumn  string            `json:"claim_number_column"`
	BillNumberColumn   string            `json:"bill_number_column"`
	RelationshipColumn string            `json:"relationship_column"`
	ServiceDateColumn  string            `json:"service_date_column"`
	ClaimAmountColumn  string            `json:"claim_amount_column"`
	PaidAmountColumn   string            `json:"paid_amount_column"`
	PaymentNoColumn    string            `json:"payment_no_column"`
	PaymentModeColumn  string            `json:"payment_mode_column"`
	HasHeader          bool              `json:"has_header"`
	Delimiter          rune              `json:"delimiter"`
	ColumnAliases      map[string]string `json:"column_aliases,omitempty"`
	Description        string            `json:"description,omitempty"`
}

// Validate checks if the remittance parser configuration is valid
func (rpc *RemittanceParserConfig) Validate() error {
	if strings.TrimSpace(rpc.MemberColumn) == "" {
		return fmt.Errorf("member column cannot be empty")
	}
	if strings.TrimSpace(rpc.PaidAmountColumn) == "" {
		return fmt.Errorf("paid amount column cannot be empty")
	}
	if strings.TrimSpace(rpc.ServiceDateColumn) == "" {
		return fmt.Errorf("service date column cannot be empty")
	}
	return nil
}

// GetColumnName maps a standard field name to the configured column name
func (rpc *RemittanceParserConfig) GetColumnName(standardName string) string {
	switch standardName {
	case "member":
		return rpc.MemberColumn
	case "employer":
		return rpc.EmployerColumn
	case "patient":
		return rpc.PatientColumn
	case "claim_number":
		return rpc.ClaimNumberColumn
	case "bill_number":
		return rpc.BillNumberColumn
	case "relationship":
		return rpc.RelationshipColumn
	case "service_date":
		return rpc.ServiceDateColumn
	case "claim_amount":
		return rpc.ClaimAmountColumn
	case "paid_amount":
		return rpc.PaidAmountColumn
	case "payment_no":
		return rpc.PaymentNoColumn
	case "payment_mode":
		return rpc.PaymentModeColumn
	default:
		return standardName
	}
}

// Predefined remittance configurations for common insurer formats
var (
	// StandardRemittanceConfig represents a generic payment-advice format
	StandardRemittanceConfig = &RemittanceParserConfig{
		Name:               "Standard",
		MemberColumn:       "member_number",
		EmployerColumn:     "employer_name",
		PatientColumn:      "patient_name",
		ClaimNumberColumn:  "claim_number",
		BillNumberColumn:   "bill_number",
		RelationshipColumn: "relationship",
		ServiceDateColumn:  "service_date",
		ClaimAmountColumn:  "claim_amount",
		PaidAmountColumn:   "paid_amount",
		PaymentNoColumn:    "payment_no",
		PaymentModeColumn:  "payment_mode",
		HasHeader:          true,
		Delimiter:          ',',
		Description:        "Standard payment-advice format",
	}

	// LibertyRemittanceConfig matches Liberty-style statements where the
	// clinic's invoice number appears as "Bill No."
	LibertyRemittanceConfig = &RemittanceParserConfig{
		Name:               "Liberty",
		MemberColumn:       "Member No.",
		EmployerColumn:     "Employer",
		PatientColumn:      "Patient Name",
		ClaimNumberColumn:  "Claim No.",
		BillNumberColumn:   "Bill No.",
		RelationshipColumn: "Relationship",
		ServiceDateColumn:  "Treatment Date",
		ClaimAmountColumn:  "Claimed Amount",
		PaidAmountColumn:   "Paid Amount",
		PaymentNoColumn:    "Payment No.",
		PaymentModeColumn:  "Payment Mode",
		HasHeader:          true,
		Delimiter:          ',',
		Description:        "Liberty statement format with DD/MM/YYYY dates",
	}

	// JubileeRemittanceConfig matches Jubilee-style statements with
	// semicolon delimiters
	JubileeRemittanceConfig = &RemittanceParserConfig{
		Name:               "Jubilee",
		MemberColumn:       "member_no",
		EmployerColumn:     "employer",
		PatientColumn:      "patient",
		ClaimNumberColumn:  "claim_ref",
		BillNumberColumn:   "provider_bill_ref",
		RelationshipColumn: "relation",
		ServiceDateColumn:  "visit_date",
		ClaimAmountColumn:  "amount_claimed",
		PaidAmountColumn:   "amount_paid",
		PaymentNoColumn:    "remittance_ref",
		PaymentModeColumn:  "mode",
		HasHeader:          true,
		Delimiter:          ';',
		Description:        "Jubilee statement format with semicolon delimiter",
	}
)

// GetRemittanceConfig returns a predefined insurer configuration by name
func GetRemittanceConfig(name string) *RemittanceParserConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return StandardRemittanceConfig
	case "liberty":
		return LibertyRemittanceConfig
	case "jubilee":
		return JubileeRemittanceConfig
	default:
		return nil
	}
}

// ListAvailableRemittanceConfigs returns all predefined insurer configurations
func ListAvailableRemittanceConfigs() []*RemittanceParserConfig {
	return []*RemittanceParserConfig{
		StandardRemittanceConfig,
		LibertyRemittanceConfig,
		JubileeRemittanceConfig,
	}
}

// AutoDetectRemittanceConfig attempts to detect the insurer format from
// headers, falling back to the standard format.
func AutoDetectRemittanceConfig(headers []string) *RemittanceParserConfig {
	headerMap := make(map[string]bool)
	for _, header := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = true
	}

	for _, config := range ListAvailableRemittanceConfigs() {
		score := 0
		if headerMap[strings.ToLower(config.MemberColumn)] {
			score++
		}
		if headerMap[strings.ToLower(config.PaidAmountColumn)] {
			score++
		}
		if headerMap[strings.ToLower(config.ServiceDateColumn)] {
			score++
		}
		if score == 3 {
			return config
		}
	}

	return StandardRemittanceConfig
}
