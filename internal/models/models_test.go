package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validClaim() *Claim {
	return &Claim{
		ID:           "c1",
		Provider:     "LIBERTY",
		MemberNumber: "6444720",
		ServiceDate:  time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		BilledAmount: decimal.NewFromInt(1500),
		Period:       NewPeriod(2025, 6),
		Status:       StatusAwaitingPayment,
	}
}

func TestClaimStatusIsValid(t *testing.T) {
	valid := []ClaimStatus{StatusAwaitingPayment, StatusMatched, StatusPartiallyPaid, StatusUnpaid, StatusManualReview}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ClaimStatus("settled").IsValid() {
		t.Error("unknown status should be invalid")
	}
}

func TestClaimStatusIsOutstanding(t *testing.T) {
	outstanding := []ClaimStatus{StatusAwaitingPayment, StatusPartiallyPaid, StatusUnpaid, StatusManualReview}
	for _, s := range outstanding {
		if !s.IsOutstanding() {
			t.Errorf("expected %s to be outstanding", s)
		}
	}
	if StatusMatched.IsOutstanding() {
		t.Error("matched should not be outstanding")
	}
}

func TestClaimStatusTransitions(t *testing.T) {
	// Matched is terminal
	if StatusMatched.CanTransitionTo(StatusUnpaid) {
		t.Error("matched must not transition to unpaid")
	}
	if !StatusMatched.CanTransitionTo(StatusMatched) {
		t.Error("matched may remain matched")
	}

	// Outstanding statuses may move freely, including to matched
	if !StatusUnpaid.CanTransitionTo(StatusMatched) {
		t.Error("unpaid should transition to matched")
	}
	if !StatusPartiallyPaid.CanTransitionTo(StatusManualReview) {
		t.Error("partially-paid should transition to manual-review")
	}
	if StatusUnpaid.CanTransitionTo(ClaimStatus("bogus")) {
		t.Error("transition to invalid status must be rejected")
	}
}

func TestParsePeriod(t *testing.T) {
	period, err := ParsePeriod("2025-06")
	if err != nil {
		t.Fatalf("ParsePeriod failed: %v", err)
	}
	if period.Year != 2025 || period.Month != 6 {
		t.Errorf("period = %+v, want 2025-06", period)
	}
	if period.String() != "2025-06" {
		t.Errorf("String = %q, want 2025-06", period.String())
	}

	for _, bad := range []string{"", "2025", "2025-13", "2025-00", "June 2025", "2025/06"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) should fail", bad)
		}
	}
}

func TestPeriodBefore(t *testing.T) {
	a := NewPeriod(2025, 6)
	b := NewPeriod(2025, 8)
	c := NewPeriod(2026, 1)

	if !a.Before(b) || !b.Before(c) {
		t.Error("expected period ordering 2025-06 < 2025-08 < 2026-01")
	}
	if b.Before(a) || a.Before(a) {
		t.Error("Before must be strict")
	}
}

func TestClaimValidate(t *testing.T) {
	if err := validClaim().Validate(); err != nil {
		t.Errorf("valid claim rejected: %v", err)
	}

	missingProvider := validClaim()
	missingProvider.Provider = ""
	if err := missingProvider.Validate(); err == nil {
		t.Error("claim without provider should be invalid")
	}

	missingMember := validClaim()
	missingMember.MemberNumber = " "
	if err := missingMember.Validate(); err == nil {
		t.Error("claim without member number should be invalid")
	}

	negative := validClaim()
	negative.BilledAmount = decimal.NewFromInt(-5)
	if err := negative.Validate(); err == nil {
		t.Error("negative billed amount should be invalid")
	}

	badPeriod := validClaim()
	badPeriod.Period = Period{Year: 2025, Month: 13}
	if err := badPeriod.Validate(); err == nil {
		t.Error("invalid period should be rejected")
	}
}

func TestRemittanceLineValidate(t *testing.T) {
	line := &RemittanceLine{
		ID:           "r1",
		Provider:     "LIBERTY",
		MemberNumber: "6444720",
		ServiceDate:  time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		ClaimAmount:  decimal.NewFromInt(1500),
		PaidAmount:   decimal.NewFromInt(1500),
		Period:       NewPeriod(2025, 6),
	}
	if err := line.Validate(); err != nil {
		t.Errorf("valid line rejected: %v", err)
	}

	line.PaidAmount = decimal.NewFromInt(-1)
	if err := line.Validate(); err == nil {
		t.Error("negative paid amount should be invalid")
	}
}

func TestClaimMarshalJSON(t *testing.T) {
	claim := validClaim()
	data, err := json.Marshal(claim)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"billedAmount":"1500"`) {
		t.Errorf("amounts should marshal as strings, got %s", s)
	}
	if !strings.Contains(s, `"serviceDate":"2025-06-15"`) {
		t.Errorf("service date should marshal as YYYY-MM-DD, got %s", s)
	}
}
