// Package keys derives the composite keys used to pair claims with
// remittance lines. A composite key is never stored as identity; it is
// recomputed from entity attributes for each reconciliation run.
//
// Two key families exist, in strict preference order:
//
//	{member}|INV:{invoice}            invoice/bill-number match
//	{member}|DATE:{date}|AMT:{cents}  service date + amount fallback
//
// A claim yields exactly one key. A remittance line yields an ordered list
// of acceptable key variants: one per bill/invoice-like field it carries,
// or a set of date+amount keys spread over a small tolerance window when no
// bill reference is present.
package keys

import (
	"fmt"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/normalize"
)

// DefaultAmountDeltas is the default tolerance window, in minor units, for
// the date+amount fallback. It absorbs minor reported-amount discrepancies
// (insurer rounding) while still requiring member and date to match
// exactly. The values have no documented derivation in the upstream billing
// workflow, hence they are configurable rather than constants.
var DefaultAmountDeltas = []int64{0, 100, -100, 200, -200}

// Builder derives composite keys with a configurable fallback tolerance.
type Builder struct {
	// AmountDeltas are the minor-unit offsets applied to the claim amount
	// when building date+amount fallback variants for a remittance line.
	AmountDeltas []int64
}

// NewBuilder creates a Builder with the default amount deltas.
func NewBuilder() *Builder {
	return &Builder{AmountDeltas: DefaultAmountDeltas}
}

// ClaimKey derives the single matching key for a claim. A claim with a
// normalized invoice number keys on it; otherwise it falls back to service
// date + billed amount.
func (b *Builder) ClaimKey(claim *models.Claim) string {
	member := normalize.Member(claim.MemberNumber)
	if invoice, ok := normalize.Invoice(claim.InvoiceNumber); ok && invoice != "" {
		return invoiceKey(member, invoice)
	}
	date := normalize.DateFromTime(claim.ServiceDate)
	return dateAmountKey(member, date, normalize.ToCents(claim.BilledAmount))
}

// RemittanceKeyVariants derives the ordered list of acceptable keys for a
// remittance line. The bill number field is preferred over the claim-number
// fallback because the provider's bill number is the field guaranteed to
// align with the claim's invoice number. When no bill reference normalizes
// to non-empty, date+amount variants are produced for each configured
// amount delta, in delta order.
func (b *Builder) RemittanceKeyVariants(line *models.RemittanceLine) []string {
	member := normalize.Member(line.MemberNumber)

	var variants []string
	seen := make(map[string]bool)
	for _, raw := range []string{line.BillNumber, line.ClaimNumber} {
		invoice, ok := normalize.Invoice(raw)
		if !ok || invoice == "" {
			continue
		}
		key := invoiceKey(member, invoice)
		if !seen[key] {
			variants = append(variants, key)
			seen[key] = true
		}
	}
	if len(variants) > 0 {
		return variants
	}

	deltas := b.AmountDeltas
	if len(deltas) == 0 {
		deltas = DefaultAmountDeltas
	}
	date := normalize.DateFromTime(line.ServiceDate)
	cents := normalize.ToCents(line.ClaimAmount)
	variants = make([]string, 0, len(deltas))
	for _, delta := range deltas {
		variants = append(variants, dateAmountKey(member, date, cents+delta))
	}
	return variants
}

func invoiceKey(member, invoice string) string {
	return fmt.Sprintf("%s|INV:%s", member, invoice)
}

func dateAmountKey(member, date string, cents int64) string {
	return fmt.Sprintf("%s|DATE:%s|AMT:%d", member, date, cents)
}
