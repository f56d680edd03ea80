// Package ledger tracks claims awaiting settlement across filing periods.
//
// A claim uploaded in one period that goes unpaid stays on the ledger and
// remains matchable in every later period until a remittance settles it or
// it is flagged for manual review and resolved. The ledger reads and writes
// through the store so its view survives restarts.
package ledger

import (
	"context"
	"sort"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Ledger exposes the outstanding-claim set for a provider.
type Ledger struct {
	store  store.Store
	logger logger.Logger
}

// AgingBucket summarizes outstanding claims from one upload period.
type AgingBucket struct {
	Period      models.Period   `json:"period"`
	PeriodsOld  int             `json:"periods_old"`
	Count       int             `json:"count"`
	TotalBilled decimal.Decimal `json:"total_billed"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
}

func New(st store.Store) *Ledger {
	return &Ledger{
		store:  st,
		logger: logger.GetGlobalLogger().WithComponent("ledger"),
	}
}

// Outstanding returns every claim for the provider still awaiting
// settlement, regardless of which period it was uploaded in. Returns a
// precondition error when the ledger holds nothing for the provider.
func (l *Ledger) Outstanding(ctx context.Context, provider string) ([]*models.Claim, error) {
	claims, err := l.store.SelectOutstandingClaims(ctx, provider)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, errors.PreconditionError(errors.CodeNoOutstandingClaims, provider)
	}

	l.logger.WithFields(logger.Fields{
		"provider": provider,
		"count":    len(claims),
	}).Debug("Loaded outstanding claims")
	return claims, nil
}

// RecordSettlements persists the settlement fields written onto claims by
// a reconciliation run. Call inside the run's transaction.
func (l *Ledger) RecordSettlements(ctx context.Context, claims []*models.Claim) error {
	for _, claim := range claims {
		if err := l.store.UpdateClaimMatch(ctx, claim); err != nil {
			return err
		}
	}
	return nil
}

// Aging groups the provider's outstanding claims by upload period, oldest
// first, with the age expressed in whole periods relative to asOf.
func (l *Ledger) Aging(ctx context.Context, provider string, asOf models.Period) ([]AgingBucket, error) {
	claims, err := l.store.SelectOutstandingClaims(ctx, provider)
	if err != nil {
		return nil, err
	}

	buckets := make(map[models.Period]*AgingBucket)
	for _, claim := range claims {
		bucket, ok := buckets[claim.Period]
		if !ok {
			bucket = &AgingBucket{
				Period:      claim.Period,
				PeriodsOld:  periodsBetween(claim.Period, asOf),
				TotalBilled: decimal.Zero,
				TotalPaid:   decimal.Zero,
			}
			buckets[claim.Period] = bucket
		}
		bucket.Count++
		bucket.TotalBilled = bucket.TotalBilled.Add(claim.BilledAmount)
		bucket.TotalPaid = bucket.TotalPaid.Add(claim.AmountPaid)
	}

	result := make([]AgingBucket, 0, len(buckets))
	for _, bucket := range buckets {
		result = append(result, *bucket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Period.Before(result[j].Period)
	})
	return result, nil
}

func periodsBetween(from, to models.Period) int {
	months := (to.Year-from.Year)*12 + (to.Month - from.Month)
	if months < 0 {
		return 0
	}
	return months
}
