package matcher

import (
	"claims-reconciliation-service/internal/keys"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/normalize"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Matcher pairs a provider's outstanding claims with remittance lines.
type Matcher struct {
	config  *Config
	builder *keys.Builder
	logger  logger.Logger
}

// MatchResult is the outcome for one claim processed by a run.
type MatchResult struct {
	Claim      *models.Claim          `json:"claim"`
	Remittance *models.RemittanceLine `json:"remittance,omitempty"`
	MatchType  models.MatchType       `json:"matchType"`
	Status     models.ClaimStatus     `json:"status"`
	AmountPaid decimal.Decimal        `json:"amountPaid"`
	ReviewFlag bool                   `json:"reviewFlag,omitempty"`
}

// Result is the complete outcome of one matching run.
type Result struct {
	// Results holds one entry per claim processed, paired or not.
	Results []*MatchResult `json:"results"`

	// Orphans are remittance lines with no corresponding claim.
	Orphans []*models.RemittanceLine `json:"orphans,omitempty"`

	// DuplicateGroups lists composite keys shared by multiple claims,
	// for operator visibility.
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups,omitempty"`

	Summary Summary `json:"summary"`
}

// Summary provides aggregate statistics about one matching run.
type Summary struct {
	TotalClaims       int `json:"totalClaims"`
	TotalRemittances  int `json:"totalRemittances"`
	AutoMatched       int `json:"autoMatched"`
	PartialMatched    int `json:"partialMatched"`
	ManualReview      int `json:"manualReview"`
	OrphanRemittances int `json:"orphanRemittances"`
	UnpaidClaims      int `json:"unpaidClaims"`
	ClaimsSearched    int `json:"totalClaimsSearched"`
	ClaimsMatched     int `json:"claimsMatched"`
}

// New creates a Matcher with the specified configuration.
func New(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Matcher{
		config:  config,
		builder: config.KeyBuilder(),
		logger:  logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// Match executes one reconciliation run for a provider. It mutates the
// passed claims and remittance lines in place (status, paid amount,
// settlement links) and returns one MatchResult per claim plus the orphan
// lines. Each claim is consumed by at most one remittance line and each
// remittance line consumes at most one claim.
//
// Match never fails for row-level data problems. It fails only when either
// input set is empty, which indicates a caller-level precondition failure;
// nothing is mutated in that case.
func (m *Matcher) Match(provider string, claims []*models.Claim, lines []*models.RemittanceLine) (*Result, error) {
	if len(claims) == 0 {
		return nil, errors.PreconditionError(errors.CodeNoOutstandingClaims, provider)
	}
	if len(lines) == 0 {
		return nil, errors.PreconditionError(errors.CodeNoRemittanceLines, provider)
	}

	m.logger.WithFields(logger.Fields{
		"provider":    provider,
		"claims":      len(claims),
		"remittances": len(lines),
	}).Info("Starting matching run")

	index := NewClaimIndex(m.builder, claims)
	duplicates := index.DuplicateGroups()

	result := &Result{
		DuplicateGroups: duplicates,
		Summary: Summary{
			TotalClaims:      len(claims),
			TotalRemittances: len(lines),
			ClaimsSearched:   len(claims),
		},
	}

	for _, line := range lines {
		claim := m.consume(index, line)
		if claim == nil {
			line.Orphan = true
			line.Classification = models.MatchNone
			result.Orphans = append(result.Orphans, line)
			result.Summary.OrphanRemittances++
			continue
		}

		status, matchType, review := Classify(claim.BilledAmount, line.PaidAmount)

		claim.Status = status
		claim.AmountPaid = line.PaidAmount
		claim.RemittanceID = line.ID
		claim.ReviewFlag = review

		line.MatchedClaimID = claim.ID
		line.Classification = matchType
		line.Orphan = false

		result.Results = append(result.Results, &MatchResult{
			Claim:      claim,
			Remittance: line,
			MatchType:  matchType,
			Status:     status,
			AmountPaid: line.PaidAmount,
			ReviewFlag: review,
		})

		switch matchType {
		case models.MatchExact:
			result.Summary.AutoMatched++
		case models.MatchPartial:
			result.Summary.PartialMatched++
		}
		if status == models.StatusManualReview {
			result.Summary.ManualReview++
		}
		if status == models.StatusMatched {
			result.Summary.ClaimsMatched++
		}
	}

	// Claims never consumed remain outstanding. A prior sub-status from an
	// earlier run is preserved so staged retries layer instead of resetting.
	for _, claim := range index.Remaining() {
		if !claim.Status.IsValid() || !claim.Status.IsOutstanding() {
			claim.Status = models.StatusAwaitingPayment
		}
		result.Results = append(result.Results, &MatchResult{
			Claim:      claim,
			MatchType:  models.MatchNone,
			Status:     claim.Status,
			AmountPaid: claim.AmountPaid,
			ReviewFlag: claim.ReviewFlag,
		})
		result.Summary.UnpaidClaims++
	}

	m.logger.WithFields(logger.Fields{
		"provider":       provider,
		"exact":          result.Summary.AutoMatched,
		"partial":        result.Summary.PartialMatched,
		"manual_review":  result.Summary.ManualReview,
		"orphans":        result.Summary.OrphanRemittances,
		"still_unpaid":   result.Summary.UnpaidClaims,
		"duplicate_keys": len(duplicates),
	}).Info("Matching run completed")

	return result, nil
}

// consume pops a claim for the first remittance key variant with a
// non-empty queue, or nil when no variant yields a claim.
func (m *Matcher) consume(index *ClaimIndex, line *models.RemittanceLine) *models.Claim {
	for _, key := range m.builder.RemittanceKeyVariants(line) {
		if claim := index.Pop(key); claim != nil {
			return claim
		}
	}
	return nil
}

// Classify derives a claim's payment status from its billed amount B and
// the remittance's paid amount P. The rule set is a strict priority chain,
// evaluated top to bottom with first match winning; amounts are compared in
// rounded minor units to avoid floating-point artifacts.
//
//	P == B, B > 0  -> matched, exact
//	0 < P < B      -> partially-paid, partial
//	P == 0, B > 0  -> unpaid, partial
//	P > B,  B > 0  -> matched with review flag (overpayment), partial
//	otherwise      -> manual-review, partial (degenerate zero-billed claim)
func Classify(billed, paid decimal.Decimal) (models.ClaimStatus, models.MatchType, bool) {
	b := normalize.ToCents(billed)
	p := normalize.ToCents(paid)

	switch {
	case b > 0 && p == b:
		return models.StatusMatched, models.MatchExact, false
	case b > 0 && p > 0 && p < b:
		return models.StatusPartiallyPaid, models.MatchPartial, false
	case b > 0 && p == 0:
		return models.StatusUnpaid, models.MatchPartial, false
	case b > 0 && p > b:
		return models.StatusMatched, models.MatchPartial, true
	default:
		return models.StatusManualReview, models.MatchPartial, false
	}
}
