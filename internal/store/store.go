// Package store persists claims, remittance lines and reconciliation runs.
//
// The store is the transactional boundary for the staged workflow: a claims
// upload, a remittance upload, or a full reconciliation run each executes
// inside a single transaction so a failure partway through leaves nothing
// half-updated. Runs for the same provider are serialized with a keyed
// mutex because they read and mutate the same outstanding-claim set; runs
// for different providers proceed in parallel.
package store

import (
	"context"

	"claims-reconciliation-service/internal/models"
)

// Store is the persistence contract consumed by the reconciler.
type Store interface {
	// WithTx executes fn inside one transaction scoped to a provider.
	// Concurrent calls for the same provider are serialized; any error
	// from fn rolls the whole transaction back.
	WithTx(ctx context.Context, provider string, fn func(ctx context.Context) error) error

	// Claims

	// InsertClaims persists a batch of new claims.
	InsertClaims(ctx context.Context, claims []*models.Claim) error
	// ReplaceStagedClaims deletes staged claims (never committed to a run)
	// for the provider and period, then inserts the replacements. Claims
	// already tied to a run are preserved for audit.
	ReplaceStagedClaims(ctx context.Context, provider string, period models.Period, claims []*models.Claim) error
	// SelectOutstandingClaims returns every claim for the provider whose
	// status is still outstanding, across all upload periods.
	SelectOutstandingClaims(ctx context.Context, provider string) ([]*models.Claim, error)
	// CountClaims returns the total number of claims ever uploaded for the
	// provider, committed or staged.
	CountClaims(ctx context.Context, provider string) (int, error)
	// UpdateClaimMatch persists the settlement fields assigned by a run.
	UpdateClaimMatch(ctx context.Context, claim *models.Claim) error

	// Remittance lines

	// InsertRemittances persists a batch of new remittance lines.
	InsertRemittances(ctx context.Context, lines []*models.RemittanceLine) error
	// SelectUnmatchedRemittances returns remittance lines for the provider
	// and filing period not yet consumed by a run.
	SelectUnmatchedRemittances(ctx context.Context, provider string, period models.Period) ([]*models.RemittanceLine, error)
	// UpdateRemittanceMatch persists the match outcome assigned by a run.
	UpdateRemittanceMatch(ctx context.Context, line *models.RemittanceLine) error

	// Runs

	// InsertRun records a completed reconciliation run. Runs are
	// insert-only; superseded runs are retained for audit.
	InsertRun(ctx context.Context, run *models.ReconciliationRun) error
	// ListRuns returns the provider's runs, newest first.
	ListRuns(ctx context.Context, provider string) ([]*models.ReconciliationRun, error)

	// PurgeProvider removes every record for a provider. Administrative
	// use only; normal operation never deletes.
	PurgeProvider(ctx context.Context, provider string) error

	Close() error
}
