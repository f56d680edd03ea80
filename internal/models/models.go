package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus represents the payment state of a claim
type ClaimStatus string

const (
	// StatusAwaitingPayment is the initial state of an uploaded claim
	StatusAwaitingPayment ClaimStatus = "awaiting-payment"
	// StatusMatched means the claim was paid in full by a remittance line
	StatusMatched ClaimStatus = "matched"
	// StatusPartiallyPaid means a remittance line paid less than the billed amount
	StatusPartiallyPaid ClaimStatus = "partially-paid"
	// StatusUnpaid means the claim appeared on a statement with zero payment
	StatusUnpaid ClaimStatus = "unpaid"
	// StatusManualReview means the claim needs operator attention
	StatusManualReview ClaimStatus = "manual-review"
)

// String returns the string representation of ClaimStatus
func (s ClaimStatus) String() string {
	return string(s)
}

// IsValid checks if the claim status is one of the known states
func (s ClaimStatus) IsValid() bool {
	switch s {
	case StatusAwaitingPayment, StatusMatched, StatusPartiallyPaid, StatusUnpaid, StatusManualReview:
		return true
	default:
		return false
	}
}

// IsOutstanding reports whether a claim in this status is still eligible
// for matching against future remittance uploads. Matched is the only
// settled state.
func (s ClaimStatus) IsOutstanding() bool {
	switch s {
	case StatusAwaitingPayment, StatusPartiallyPaid, StatusUnpaid, StatusManualReview:
		return true
	default:
		return false
	}
}

// CanTransitionTo validates a status transition. Any outstanding status may
// move to any other status in one step; Matched is terminal and can only
// remain Matched.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return s.IsOutstanding()
}

// MatchType classifies the quality of a claim/remittance pairing
type MatchType string

const (
	// MatchExact means the paid amount settled the billed amount in full
	MatchExact MatchType = "exact"
	// MatchPartial covers every pairing that is not an exact settlement
	MatchPartial MatchType = "partial"
	// MatchNone means no pairing was formed
	MatchNone MatchType = "none"
)

// String returns the string representation of MatchType
func (m MatchType) String() string {
	return string(m)
}

// IsValid checks if the match type is valid
func (m MatchType) IsValid() bool {
	return m == MatchExact || m == MatchPartial || m == MatchNone
}

// Period identifies an upload or filing period (year + month)
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod creates a Period from a year and month
func NewPeriod(year, month int) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses a period from "YYYY-MM" form
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period '%s': expected YYYY-MM: %w", s, err)
	}
	return Period{Year: t.Year(), Month: int(t.Month())}, nil
}

// String returns the period in "YYYY-MM" form
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// IsZero reports whether the period is unset
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Validate checks that the period holds a plausible year and month
func (p Period) Validate() error {
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("period year out of range: %d", p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("period month out of range: %d", p.Month)
	}
	return nil
}

// Before reports whether p is chronologically before other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Claim represents a single billed service line submitted to an insurer
type Claim struct {
	ID            string          `json:"id"`
	Provider      string          `json:"provider"`
	MemberNumber  string          `json:"memberNumber"`
	PatientName   string          `json:"patientName,omitempty"`
	ServiceDate   time.Time       `json:"serviceDate"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	ClaimType     string          `json:"claimType,omitempty"`
	SchemeName    string          `json:"schemeName,omitempty"`
	BenefitDesc   string          `json:"benefitDesc,omitempty"`
	BilledAmount  decimal.Decimal `json:"billedAmount"`
	Currency      string          `json:"currency,omitempty"`
	Period        Period          `json:"period"`
	Status        ClaimStatus     `json:"status"`

	// Settlement fields, mutated only by the matcher
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	RemittanceID string          `json:"remittanceId,omitempty"`
	ReviewFlag   bool            `json:"reviewFlag,omitempty"`

	// RunID links the claim to the reconciliation run that last touched it.
	// Empty for staged claims that have never been through a run.
	RunID string `json:"runId,omitempty"`
}

// Validate performs basic validation on the Claim
func (c *Claim) Validate() error {
	if strings.TrimSpace(c.Provider) == "" {
		return fmt.Errorf("claim provider cannot be empty")
	}
	if strings.TrimSpace(c.MemberNumber) == "" {
		return fmt.Errorf("claim member number cannot be empty")
	}
	if c.BilledAmount.IsNegative() {
		return fmt.Errorf("claim billed amount cannot be negative: %s", c.BilledAmount.String())
	}
	if c.ServiceDate.IsZero() {
		return fmt.Errorf("claim service date cannot be zero")
	}
	if err := c.Period.Validate(); err != nil {
		return fmt.Errorf("claim period invalid: %w", err)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid claim status: %s", c.Status)
	}
	return nil
}

// IsOutstanding reports whether the claim is still awaiting settlement
func (c *Claim) IsOutstanding() bool {
	return c.Status.IsOutstanding()
}

// String returns a string representation of the Claim
func (c *Claim) String() string {
	return fmt.Sprintf("Claim{ID: %s, Member: %s, Invoice: %s, Billed: %s, Status: %s}",
		c.ID, c.MemberNumber, c.InvoiceNumber, c.BilledAmount.String(), c.Status)
}

// MarshalJSON implements custom JSON marshaling for Claim
func (c *Claim) MarshalJSON() ([]byte, error) {
	type Alias Claim
	return json.Marshal(&struct {
		BilledAmount string `json:"billedAmount"`
		AmountPaid   string `json:"amountPaid"`
		ServiceDate  string `json:"serviceDate"`
		*Alias
	}{
		BilledAmount: c.BilledAmount.String(),
		AmountPaid:   c.AmountPaid.String(),
		ServiceDate:  c.ServiceDate.Format("2006-01-02"),
		Alias:        (*Alias)(c),
	})
}

// RemittanceLine represents a single payment-advice line from an insurer's
// statement
type RemittanceLine struct {
	ID           string          `json:"id"`
	Provider     string          `json:"provider"`
	EmployerName string          `json:"employerName,omitempty"`
	PatientName  string          `json:"patientName,omitempty"`
	MemberNumber string          `json:"memberNumber"`
	ClaimNumber  string          `json:"claimNumber,omitempty"`
	BillNumber   string          `json:"billNumber,omitempty"`
	Relationship string          `json:"relationship,omitempty"`
	ServiceDate  time.Time       `json:"serviceDate"`
	ClaimAmount  decimal.Decimal `json:"claimAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	PaymentNo    string          `json:"paymentNo,omitempty"`
	PaymentMode  string          `json:"paymentMode,omitempty"`
	Period       Period          `json:"period"`

	// Match outcome, assigned only by the matcher
	MatchedClaimID string    `json:"matchedClaimId,omitempty"`
	Classification MatchType `json:"classification,omitempty"`
	Orphan         bool      `json:"orphan,omitempty"`
	RunID          string    `json:"runId,omitempty"`
}

// Validate performs basic validation on the RemittanceLine
func (r *RemittanceLine) Validate() error {
	if strings.TrimSpace(r.Provider) == "" {
		return fmt.Errorf("remittance provider cannot be empty")
	}
	if strings.TrimSpace(r.MemberNumber) == "" {
		return fmt.Errorf("remittance member number cannot be empty")
	}
	if r.ClaimAmount.IsNegative() {
		return fmt.Errorf("remittance claim amount cannot be negative: %s", r.ClaimAmount.String())
	}
	if r.PaidAmount.IsNegative() {
		return fmt.Errorf("remittance paid amount cannot be negative: %s", r.PaidAmount.String())
	}
	if err := r.Period.Validate(); err != nil {
		return fmt.Errorf("remittance period invalid: %w", err)
	}
	return nil
}

// String returns a string representation of the RemittanceLine
func (r *RemittanceLine) String() string {
	return fmt.Sprintf("RemittanceLine{ID: %s, Member: %s, Bill: %s, Paid: %s}",
		r.ID, r.MemberNumber, r.BillNumber, r.PaidAmount.String())
}

// MarshalJSON implements custom JSON marshaling for RemittanceLine
func (r *RemittanceLine) MarshalJSON() ([]byte, error) {
	type Alias RemittanceLine
	return json.Marshal(&struct {
		ClaimAmount string `json:"claimAmount"`
		PaidAmount  string `json:"paidAmount"`
		ServiceDate string `json:"serviceDate"`
		*Alias
	}{
		ClaimAmount: r.ClaimAmount.String(),
		PaidAmount:  r.PaidAmount.String(),
		ServiceDate: r.ServiceDate.Format("2006-01-02"),
		Alias:       (*Alias)(r),
	})
}

// ReconciliationRun records one matching execution for a provider and
// filing period. Runs are immutable once computed; a new run supersedes an
// old one conceptually but old runs are retained for audit.
type ReconciliationRun struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Period    Period    `json:"period"`
	CreatedAt time.Time `json:"createdAt"`

	ClaimsSearched  int `json:"claimsSearched"`
	RemittanceLines int `json:"remittanceLines"`
	ExactMatches    int `json:"exactMatches"`
	PartialMatches  int `json:"partialMatches"`
	ManualReview    int `json:"manualReview"`
	Orphans         int `json:"orphans"`
	ClaimsMatched   int `json:"claimsMatched"`
	UnpaidClaims    int `json:"unpaidClaims"`
}

// Validate performs basic validation on the ReconciliationRun
func (rr *ReconciliationRun) Validate() error {
	if strings.TrimSpace(rr.Provider) == "" {
		return fmt.Errorf("run provider cannot be empty")
	}
	if err := rr.Period.Validate(); err != nil {
		return fmt.Errorf("run period invalid: %w", err)
	}
	return nil
}

// String returns a string representation of the ReconciliationRun
func (rr *ReconciliationRun) String() string {
	return fmt.Sprintf("ReconciliationRun{ID: %s, Provider: %s, Period: %s, Exact: %d, Partial: %d, Orphans: %d}",
		rr.ID, rr.Provider, rr.Period, rr.ExactMatches, rr.PartialMatches, rr.Orphans)
}
