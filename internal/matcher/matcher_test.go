package matcher

import (
	"fmt"
	"testing"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newClaim(id, member, invoice, billed string) *models.Claim {
	return &models.Claim{
		ID:            id,
		Provider:      "LIBERTY",
		MemberNumber:  member,
		InvoiceNumber: invoice,
		ServiceDate:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		BilledAmount:  amount(billed),
		Period:        models.NewPeriod(2025, 6),
		Status:        models.StatusAwaitingPayment,
	}
}

func newLine(id, member, billNumber, paid string) *models.RemittanceLine {
	return &models.RemittanceLine{
		ID:           id,
		Provider:     "LIBERTY",
		MemberNumber: member,
		BillNumber:   billNumber,
		ServiceDate:  time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		ClaimAmount:  amount(paid),
		PaidAmount:   amount(paid),
		Period:       models.NewPeriod(2025, 6),
	}
}

func TestMatchExactSettlement(t *testing.T) {
	claims := []*models.Claim{newClaim("c1", "6444720", "INV-1", "1500.00")}
	lines := []*models.RemittanceLine{newLine("r1", "6444720", "INV-1", "1500.00")}

	result, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.Summary.AutoMatched != 1 {
		t.Errorf("expected 1 exact match, got %d", result.Summary.AutoMatched)
	}
	if claims[0].Status != models.StatusMatched {
		t.Errorf("claim status = %s, want matched", claims[0].Status)
	}
	if claims[0].RemittanceID != "r1" {
		t.Errorf("claim remittance id = %q, want r1", claims[0].RemittanceID)
	}
	if lines[0].MatchedClaimID != "c1" {
		t.Errorf("line matched claim id = %q, want c1", lines[0].MatchedClaimID)
	}
	if !claims[0].AmountPaid.Equal(amount("1500.00")) {
		t.Errorf("claim amount paid = %s, want 1500.00", claims[0].AmountPaid)
	}
}

func TestMatchPartialPayment(t *testing.T) {
	claims := []*models.Claim{newClaim("c1", "6444720", "INV-1", "1500.00")}
	lines := []*models.RemittanceLine{newLine("r1", "6444720", "INV-1", "1000.00")}

	result, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if claims[0].Status != models.StatusPartiallyPaid {
		t.Errorf("claim status = %s, want partially-paid", claims[0].Status)
	}
	if lines[0].Classification != models.MatchPartial {
		t.Errorf("line classification = %s, want partial", lines[0].Classification)
	}
	if result.Summary.PartialMatched != 1 {
		t.Errorf("expected 1 partial match, got %d", result.Summary.PartialMatched)
	}
}

func TestMatchZeroPayment(t *testing.T) {
	claims := []*models.Claim{newClaim("c1", "6444720", "INV-1", "1500.00")}
	line := newLine("r1", "6444720", "INV-1", "0")
	lines := []*models.RemittanceLine{line}

	_, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	// A zero-paid line still pairs with and consumes its claim
	if claims[0].Status != models.StatusUnpaid {
		t.Errorf("claim status = %s, want unpaid", claims[0].Status)
	}
	if line.MatchedClaimID != "c1" {
		t.Errorf("zero-paid line should consume the claim, got matched id %q", line.MatchedClaimID)
	}
}

func TestMatchOverpaymentFlagsReview(t *testing.T) {
	claims := []*models.Claim{newClaim("c1", "6444720", "INV-1", "1500.00")}
	lines := []*models.RemittanceLine{newLine("r1", "6444720", "INV-1", "2000.00")}

	_, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if claims[0].Status != models.StatusMatched {
		t.Errorf("overpaid claim status = %s, want matched", claims[0].Status)
	}
	if !claims[0].ReviewFlag {
		t.Error("overpaid claim should carry the review flag")
	}
	if lines[0].Classification != models.MatchPartial {
		t.Errorf("overpayment classification = %s, want partial", lines[0].Classification)
	}
}

func TestMatchOrphanRemittance(t *testing.T) {
	claims := []*models.Claim{newClaim("c1", "6444720", "INV-1", "1500.00")}
	lines := []*models.RemittanceLine{
		newLine("r1", "6444720", "INV-1", "1500.00"),
		newLine("r2", "9999999", "INV-X", "800.00"),
	}

	result, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if result.Summary.OrphanRemittances != 1 {
		t.Fatalf("expected 1 orphan, got %d", result.Summary.OrphanRemittances)
	}
	orphan := result.Orphans[0]
	if orphan.ID != "r2" {
		t.Errorf("orphan id = %q, want r2", orphan.ID)
	}
	if !orphan.Orphan {
		t.Error("orphan line should be flagged")
	}
	if orphan.Classification != models.MatchNone {
		t.Errorf("orphan classification = %s, want none", orphan.Classification)
	}
}

func TestMatchUnmatchedClaimStaysOutstanding(t *testing.T) {
	claims := []*models.Claim{
		newClaim("c1", "6444720", "INV-1", "1500.00"),
		newClaim("c2", "7555830", "INV-2", "900.00"),
	}
	lines := []*models.RemittanceLine{newLine("r1", "6444720", "INV-1", "1500.00")}

	result, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if claims[1].Status != models.StatusAwaitingPayment {
		t.Errorf("untouched claim status = %s, want awaiting-payment", claims[1].Status)
	}
	if result.Summary.UnpaidClaims != 1 {
		t.Errorf("expected 1 claim left outstanding, got %d", result.Summary.UnpaidClaims)
	}
}

func TestMatchPreservesPriorOutstandingStatus(t *testing.T) {
	carried := newClaim("c1", "6444720", "INV-1", "1500.00")
	carried.Status = models.StatusPartiallyPaid
	carried.AmountPaid = amount("500.00")

	claims := []*models.Claim{
		carried,
		newClaim("c2", "7555830", "INV-2", "900.00"),
	}
	lines := []*models.RemittanceLine{newLine("r1", "7555830", "INV-2", "900.00")}

	_, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	// The carried claim was not consumed this run; its partial status from
	// the earlier run must survive.
	if carried.Status != models.StatusPartiallyPaid {
		t.Errorf("carried claim status = %s, want partially-paid preserved", carried.Status)
	}
	if !carried.AmountPaid.Equal(amount("500.00")) {
		t.Errorf("carried claim amount paid = %s, want 500.00 preserved", carried.AmountPaid)
	}
}

func TestMatchDuplicateKeysConsumeFIFO(t *testing.T) {
	// Three claims share one fallback key; two payment lines arrive.
	// Exactly min(3,2)=2 claims are consumed, oldest first.
	var claims []*models.Claim
	for i := 1; i <= 3; i++ {
		c := newClaim(fmt.Sprintf("c%d", i), "6444720", "", "1500.00")
		claims = append(claims, c)
	}
	var lines []*models.RemittanceLine
	for i := 1; i <= 2; i++ {
		lines = append(lines, newLine(fmt.Sprintf("r%d", i), "6444720", "", "1500.00"))
	}

	result, err := New(DefaultConfig()).Match("LIBERTY", claims, lines)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if lines[0].MatchedClaimID != "c1" {
		t.Errorf("first line matched %q, want c1 (FIFO)", lines[0].MatchedClaimID)
	}
	if lines[1].MatchedClaimID != "c2" {
		t.Errorf("second line matched %q, want c2 (FIFO)", lines[1].MatchedClaimID)
	}
	if claims[2].Status != models.StatusAwaitingPayment {
		t.Errorf("third duplicate status = %s, want awaiting-payment", claims[2].Status)
	}
	if len(result.DuplicateGroups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(result.DuplicateGroups))
	}
	if len(result.DuplicateGroups[0].ClaimIDs) != 3 {
		t.Errorf("duplicate group size = %d, want 3", len(result.DuplicateGroups[0].ClaimIDs))
	}
}

func TestMatchAmountTolerance(t *testing.T) {
	// Claim billed 1500.00, statement reports 1501.00; within the ±100
	// minor-unit window the fallback key still pairs them.
	claim := newClaim("c1", "6444720", "", "1500.00")
	line := newLine("r1", "6444720", "", "1501.00")

	_, err := New(DefaultConfig()).Match("LIBERTY", []*models.Claim{claim}, []*models.RemittanceLine{line})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if line.MatchedClaimID != "c1" {
		t.Errorf("expected tolerance pairing, line matched %q", line.MatchedClaimID)
	}

	// Strict config disables the window
	claim2 := newClaim("c1", "6444720", "", "1500.00")
	line2 := newLine("r1", "6444720", "", "1501.00")
	result, err := New(StrictConfig()).Match("LIBERTY", []*models.Claim{claim2}, []*models.RemittanceLine{line2})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Summary.OrphanRemittances != 1 {
		t.Errorf("strict config should orphan the line, got %d orphans", result.Summary.OrphanRemittances)
	}
}

func TestMatchEmptyInputsArePreconditionFailures(t *testing.T) {
	m := New(DefaultConfig())

	_, err := m.Match("LIBERTY", nil, []*models.RemittanceLine{newLine("r1", "1", "B", "10")})
	if !errors.IsPrecondition(err) {
		t.Errorf("empty claims: expected precondition error, got %v", err)
	}

	_, err = m.Match("LIBERTY", []*models.Claim{newClaim("c1", "1", "B", "10")}, nil)
	if !errors.IsPrecondition(err) {
		t.Errorf("empty lines: expected precondition error, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		billed     string
		paid       string
		status     models.ClaimStatus
		matchType  models.MatchType
		reviewFlag bool
	}{
		{"full payment", "1500", "1500", models.StatusMatched, models.MatchExact, false},
		{"partial payment", "1500", "1000", models.StatusPartiallyPaid, models.MatchPartial, false},
		{"zero payment", "1500", "0", models.StatusUnpaid, models.MatchPartial, false},
		{"overpayment", "1500", "2000", models.StatusMatched, models.MatchPartial, true},
		{"zero billed", "0", "0", models.StatusManualReview, models.MatchPartial, false},
		{"zero billed paid", "0", "100", models.StatusManualReview, models.MatchPartial, false},
		{"rounding equal", "1500.004", "1500.00", models.StatusMatched, models.MatchExact, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, matchType, review := Classify(amount(tt.billed), amount(tt.paid))
			if status != tt.status {
				t.Errorf("status = %s, want %s", status, tt.status)
			}
			if matchType != tt.matchType {
				t.Errorf("matchType = %s, want %s", matchType, tt.matchType)
			}
			if review != tt.reviewFlag {
				t.Errorf("reviewFlag = %v, want %v", review, tt.reviewFlag)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := StrictConfig().Validate(); err != nil {
		t.Errorf("strict config invalid: %v", err)
	}
	if err := (&Config{}).Validate(); err == nil {
		t.Error("empty deltas should be invalid")
	}
	if err := (&Config{AmountDeltas: []int64{100, 0}}).Validate(); err == nil {
		t.Error("nonzero first delta should be invalid")
	}
}

func TestClaimIndex(t *testing.T) {
	builder := DefaultConfig().KeyBuilder()
	claims := []*models.Claim{
		newClaim("c1", "1111111", "INV-A", "100"),
		newClaim("c2", "1111111", "INV-A", "100"),
		newClaim("c3", "2222222", "INV-B", "200"),
	}

	index := NewClaimIndex(builder, claims)
	if index.Len() != 3 {
		t.Fatalf("Len = %d, want 3", index.Len())
	}

	groups := index.DuplicateGroups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(groups))
	}

	key := builder.ClaimKey(claims[0])
	if got := index.Pop(key); got == nil || got.ID != "c1" {
		t.Errorf("first Pop = %v, want c1", got)
	}
	if got := index.Pop(key); got == nil || got.ID != "c2" {
		t.Errorf("second Pop = %v, want c2", got)
	}
	if got := index.Pop(key); got != nil {
		t.Errorf("exhausted Pop = %v, want nil", got)
	}

	remaining := index.Remaining()
	if len(remaining) != 1 || remaining[0].ID != "c3" {
		t.Errorf("Remaining = %v, want [c3]", remaining)
	}
}
