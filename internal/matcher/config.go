// Package matcher implements the claim/remittance reconciliation algorithm.
//
// The matcher consumes a provider's full outstanding-claim set and a batch
// of newly uploaded remittance lines, and produces one-to-one pairings plus
// the unmatched remnants on both sides. Data-quality problems never abort a
// run; they are expressed as status outcomes (orphan lines, manual-review
// claims) for operator action. A run aborts only when either input set is
// empty, which is a caller-level precondition failure.
//
// Example usage:
//
//	m := matcher.New(matcher.DefaultConfig())
//	result, err := m.Match("ACME Clinic", outstandingClaims, remittanceLines)
package matcher

import (
	"fmt"

	"claims-reconciliation-service/internal/keys"
)

// Config holds configuration parameters for claim matching.
type Config struct {
	// AmountDeltas are the minor-unit offsets tried when pairing on the
	// date+amount fallback key. The zero delta must come first so an exact
	// amount always wins over a tolerance hit.
	AmountDeltas []int64 `json:"amount_deltas"`
}

// DefaultConfig returns a configuration with the standard tolerance window.
func DefaultConfig() *Config {
	deltas := make([]int64, len(keys.DefaultAmountDeltas))
	copy(deltas, keys.DefaultAmountDeltas)
	return &Config{AmountDeltas: deltas}
}

// StrictConfig returns a configuration that disables the amount tolerance:
// the date+amount fallback requires the reported amount to match exactly.
func StrictConfig() *Config {
	return &Config{AmountDeltas: []int64{0}}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if len(c.AmountDeltas) == 0 {
		return fmt.Errorf("amount deltas cannot be empty; use [0] for exact matching")
	}
	if c.AmountDeltas[0] != 0 {
		return fmt.Errorf("first amount delta must be 0, got %d", c.AmountDeltas[0])
	}
	return nil
}

// Clone creates a copy of the matching configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	deltas := make([]int64, len(c.AmountDeltas))
	copy(deltas, c.AmountDeltas)
	return &Config{AmountDeltas: deltas}
}

// KeyBuilder returns a key builder configured with this tolerance window.
func (c *Config) KeyBuilder() *keys.Builder {
	return &keys.Builder{AmountDeltas: c.AmountDeltas}
}
