// Package reconciler orchestrates the staged reconciliation workflow:
// claims upload, remittance upload, then a matching run, all scoped to one
// provider and filing period.
package reconciler

import (
	"context"
	"time"

	"claims-reconciliation-service/internal/ledger"
	"claims-reconciliation-service/internal/matcher"
	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// Service coordinates the store, ledger and matcher for one deployment.
type Service struct {
	store   store.Store
	ledger  *ledger.Ledger
	matcher *matcher.Matcher
	logger  logger.Logger
}

// UploadResult reports the outcome of a claims or remittance upload.
type UploadResult struct {
	Provider string        `json:"provider"`
	Period   models.Period `json:"period"`
	Accepted int           `json:"accepted"`
}

// RunReport is the full outcome of one reconciliation run: the persisted
// run record plus the per-claim detail the run was computed from.
type RunReport struct {
	Run             *models.ReconciliationRun `json:"run"`
	Results         []*matcher.MatchResult    `json:"results"`
	Orphans         []*models.RemittanceLine  `json:"orphans,omitempty"`
	DuplicateGroups []matcher.DuplicateGroup  `json:"duplicate_groups,omitempty"`
	Summary         matcher.Summary           `json:"summary"`
}

// NewService creates a Service backed by the given store. A nil matcher
// config selects the default fallback deltas.
func NewService(st store.Store, matcherConfig *matcher.Config) *Service {
	return &Service{
		store:   st,
		ledger:  ledger.New(st),
		matcher: matcher.New(matcherConfig),
		logger:  logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// UploadClaims stages a provider's claims for a filing period. Re-uploading
// the same period replaces claims that have never been through a run;
// claims already committed to a run are never touched.
func (s *Service) UploadClaims(ctx context.Context, provider string, period models.Period, claims []*models.Claim) (*UploadResult, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidPeriod, "period", period.String(), err)
	}

	s.logger.WithFields(logger.Fields{
		"provider": provider,
		"period":   period.String(),
		"claims":   len(claims),
	}).Info("Uploading claims")

	err := s.store.WithTx(ctx, provider, func(ctx context.Context) error {
		return s.store.ReplaceStagedClaims(ctx, provider, period, claims)
	})
	if err != nil {
		return nil, err
	}

	return &UploadResult{Provider: provider, Period: period, Accepted: len(claims)}, nil
}

// UploadRemittances stages an insurer statement for a filing period. The
// provider must have uploaded claims at some point first; a statement for
// an unknown provider is an operator mistake, not an all-orphan run.
func (s *Service) UploadRemittances(ctx context.Context, provider string, period models.Period, lines []*models.RemittanceLine) (*UploadResult, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidPeriod, "period", period.String(), err)
	}

	s.logger.WithFields(logger.Fields{
		"provider": provider,
		"period":   period.String(),
		"lines":    len(lines),
	}).Info("Uploading remittances")

	err := s.store.WithTx(ctx, provider, func(ctx context.Context) error {
		count, err := s.store.CountClaims(ctx, provider)
		if err != nil {
			return err
		}
		if count == 0 {
			return errors.PreconditionError(errors.CodeNoClaimsForProvider, provider)
		}
		return s.store.InsertRemittances(ctx, lines)
	})
	if err != nil {
		return nil, err
	}

	return &UploadResult{Provider: provider, Period: period, Accepted: len(lines)}, nil
}

// Reconcile runs matching for one provider and filing period. The claim
// pool is every outstanding claim regardless of upload period, so a claim
// unpaid since an earlier period can still be settled by this statement.
// The whole run commits atomically; a precondition failure or storage
// error persists nothing.
func (s *Service) Reconcile(ctx context.Context, provider string, period models.Period) (*RunReport, error) {
	if err := period.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidPeriod, "period", period.String(), err)
	}

	started := time.Now()
	var report *RunReport

	err := s.store.WithTx(ctx, provider, func(ctx context.Context) error {
		claims, err := s.ledger.Outstanding(ctx, provider)
		if err != nil {
			return err
		}

		lines, err := s.store.SelectUnmatchedRemittances(ctx, provider, period)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return errors.PreconditionError(errors.CodeNoRemittanceLines, provider)
		}

		result, err := s.matcher.Match(provider, claims, lines)
		if err != nil {
			return err
		}

		run := &models.ReconciliationRun{
			ID:              uuid.New().String(),
			Provider:        provider,
			Period:          period,
			CreatedAt:       time.Now().UTC(),
			ClaimsSearched:  result.Summary.ClaimsSearched,
			RemittanceLines: result.Summary.TotalRemittances,
			ExactMatches:    result.Summary.AutoMatched,
			PartialMatches:  result.Summary.PartialMatched,
			ManualReview:    result.Summary.ManualReview,
			Orphans:         result.Summary.OrphanRemittances,
			ClaimsMatched:   result.Summary.ClaimsMatched,
			UnpaidClaims:    result.Summary.UnpaidClaims,
		}

		// Claims consumed by a line carry the run id for audit; claims
		// left outstanding stay unstamped and flow into the next run.
		var touched []*models.Claim
		for _, mr := range result.Results {
			if mr.Remittance != nil {
				mr.Claim.RunID = run.ID
				touched = append(touched, mr.Claim)
			}
		}
		if err := s.ledger.RecordSettlements(ctx, touched); err != nil {
			return err
		}

		// Every line in the statement is consumed, orphaned or not.
		for _, line := range lines {
			line.RunID = run.ID
			if err := s.store.UpdateRemittanceMatch(ctx, line); err != nil {
				return err
			}
		}

		if err := s.store.InsertRun(ctx, run); err != nil {
			return err
		}

		report = &RunReport{
			Run:             run,
			Results:         result.Results,
			Orphans:         result.Orphans,
			DuplicateGroups: result.DuplicateGroups,
			Summary:         result.Summary,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"provider": provider,
		"period":   period.String(),
		"run_id":   report.Run.ID,
		"duration": time.Since(started).String(),
	}).Info("Reconciliation run committed")

	return report, nil
}

// ListRuns returns the provider's run history, newest first.
func (s *Service) ListRuns(ctx context.Context, provider string) ([]*models.ReconciliationRun, error) {
	return s.store.ListRuns(ctx, provider)
}

// Aging summarizes the provider's outstanding claims by upload period.
func (s *Service) Aging(ctx context.Context, provider string, asOf models.Period) ([]ledger.AgingBucket, error) {
	return s.ledger.Aging(ctx, provider, asOf)
}

// Purge removes every record for a provider, run history included.
// Administrative use only; this cannot be undone.
func (s *Service) Purge(ctx context.Context, provider string) error {
	s.logger.WithField("provider", provider).Warn("Purging all provider data")
	return s.store.WithTx(ctx, provider, func(ctx context.Context) error {
		return s.store.PurgeProvider(ctx, provider)
	})
}
