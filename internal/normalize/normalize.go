// Package normalize produces canonical forms for the fields used in claim
// matching, so that cosmetically different representations of the same value
// compare equal despite spreadsheet artifacts, punctuation and case noise.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// decimalTails are the spreadsheet export artifacts stripped from
// integer-like identifiers ("6444720.0" for an ID that is really 6444720).
var decimalTails = []string{".00", ".0"}

// dateFormats lists the date layouts accepted by Date, in the order they
// are tried. Spreadsheet exports are inconsistent enough that one layout
// never covers a whole upload.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Member canonicalizes a member number: strips thousands separators,
// collapses a trailing ".0"/".00" decimal tail, upper-cases and removes all
// non-alphanumeric characters. Always returns a string, possibly empty, and
// is idempotent.
func Member(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	for _, tail := range decimalTails {
		if strings.HasSuffix(s, tail) {
			s = strings.TrimSuffix(s, tail)
			break
		}
	}
	s = strings.ToUpper(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Invoice applies the same cleanup as Member but reports absence: it
// returns ("", false) for empty or absent input so callers can distinguish
// "no invoice number" from "invoice number that normalizes to empty".
func Invoice(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	return Member(raw), true
}

// Date canonicalizes a date value to YYYY-MM-DD. Unparsable input yields an
// empty string; it never fails.
func Date(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// DateFromTime formats a time as the canonical YYYY-MM-DD key form. A zero
// time yields an empty string.
func DateFromTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// ToCents converts a decimal currency amount to integer minor units by
// rounding to two places. Working in minor units avoids floating-point
// equality bugs when amounts are compared during matching.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// Amount parses a raw amount string into a decimal, tolerating currency
// symbols and thousands separators. Invalid or empty input maps to zero.
func Amount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
