package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS claims (
	id             TEXT PRIMARY KEY,
	provider       TEXT NOT NULL,
	member_number  TEXT NOT NULL,
	patient_name   TEXT NOT NULL DEFAULT '',
	service_date   TEXT NOT NULL,
	invoice_number TEXT NOT NULL DEFAULT '',
	claim_type     TEXT NOT NULL DEFAULT '',
	scheme_name    TEXT NOT NULL DEFAULT '',
	benefit_desc   TEXT NOT NULL DEFAULT '',
	billed_amount  TEXT NOT NULL,
	currency       TEXT NOT NULL DEFAULT '',
	period         TEXT NOT NULL,
	status         TEXT NOT NULL,
	amount_paid    TEXT NOT NULL DEFAULT '0',
	remittance_id  TEXT NOT NULL DEFAULT '',
	review_flag    INTEGER NOT NULL DEFAULT 0,
	run_id         TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_claims_provider_status ON claims(provider, status);
CREATE INDEX IF NOT EXISTS idx_claims_provider_period ON claims(provider, period);

CREATE TABLE IF NOT EXISTS remittances (
	id               TEXT PRIMARY KEY,
	provider         TEXT NOT NULL,
	employer_name    TEXT NOT NULL DEFAULT '',
	patient_name     TEXT NOT NULL DEFAULT '',
	member_number    TEXT NOT NULL,
	claim_number     TEXT NOT NULL DEFAULT '',
	bill_number      TEXT NOT NULL DEFAULT '',
	relationship     TEXT NOT NULL DEFAULT '',
	service_date     TEXT NOT NULL,
	claim_amount     TEXT NOT NULL,
	paid_amount      TEXT NOT NULL,
	payment_no       TEXT NOT NULL DEFAULT '',
	payment_mode     TEXT NOT NULL DEFAULT '',
	period           TEXT NOT NULL,
	matched_claim_id TEXT NOT NULL DEFAULT '',
	classification   TEXT NOT NULL DEFAULT '',
	orphan           INTEGER NOT NULL DEFAULT 0,
	run_id           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_remittances_provider_period ON remittances(provider, period);

CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	provider         TEXT NOT NULL,
	period           TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	claims_searched  INTEGER NOT NULL,
	remittance_lines INTEGER NOT NULL,
	exact_matches    INTEGER NOT NULL,
	partial_matches  INTEGER NOT NULL,
	manual_review    INTEGER NOT NULL,
	orphans          INTEGER NOT NULL,
	claims_matched   INTEGER NOT NULL,
	unpaid_claims    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_provider ON runs(provider, created_at);
`

// querier is satisfied by both *sql.DB and *sql.Tx, so store methods run
// the same inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "open database", err)
	}

	// SQLite permits one writer; a second connection would only ever block.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StorageError(errors.CodeStorageFailure, "apply schema", err)
	}

	log := logger.GetGlobalLogger().WithComponent("store")
	log.WithField("path", path).Debug("Opened claims database")

	return &SQLiteStore{
		db:     db,
		logger: log,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// providerLock returns the mutex serializing work for one provider.
func (s *SQLiteStore) providerLock(provider string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[provider]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[provider] = lock
	}
	return lock
}

// conn returns the transaction bound to ctx, or the base connection.
func (s *SQLiteStore) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return s.db
}

// WithTx serializes on the provider's lock, opens a transaction, and runs
// fn with the transaction bound to the context. Any error rolls back.
func (s *SQLiteStore) WithTx(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	lock := s.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StorageError(errors.CodeTxFailure, "begin transaction", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).WithField("provider", provider).Error("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageError(errors.CodeTxFailure, "commit transaction", err)
	}
	return nil
}

// InsertClaims persists a batch of new claims.
func (s *SQLiteStore) InsertClaims(ctx context.Context, claims []*models.Claim) error {
	const q = `INSERT INTO claims
		(id, provider, member_number, patient_name, service_date, invoice_number,
		 claim_type, scheme_name, benefit_desc, billed_amount, currency, period,
		 status, amount_paid, remittance_id, review_flag, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	conn := s.conn(ctx)
	for _, c := range claims {
		_, err := conn.ExecContext(ctx, q,
			c.ID, c.Provider, c.MemberNumber, c.PatientName,
			c.ServiceDate.Format("2006-01-02"), c.InvoiceNumber,
			c.ClaimType, c.SchemeName, c.BenefitDesc,
			c.BilledAmount.String(), c.Currency, c.Period.String(),
			string(c.Status), c.AmountPaid.String(), c.RemittanceID,
			boolToInt(c.ReviewFlag), c.RunID)
		if err != nil {
			return errors.StorageError(errors.CodeStorageFailure, "insert claim", err).
				WithContext("claim_id", c.ID)
		}
	}
	return nil
}

// ReplaceStagedClaims deletes staged (run-less) claims for the provider and
// period, then inserts the replacements.
func (s *SQLiteStore) ReplaceStagedClaims(ctx context.Context, provider string, period models.Period, claims []*models.Claim) error {
	const del = `DELETE FROM claims WHERE provider = ? AND period = ? AND run_id = ''`
	if _, err := s.conn(ctx).ExecContext(ctx, del, provider, period.String()); err != nil {
		return errors.StorageError(errors.CodeStorageFailure, "replace staged claims", err).
			WithContext("provider", provider).
			WithContext("period", period.String())
	}
	return s.InsertClaims(ctx, claims)
}

// SelectOutstandingClaims returns claims still awaiting settlement for the
// provider across all upload periods, ordered by service date then id for
// deterministic queue order.
func (s *SQLiteStore) SelectOutstandingClaims(ctx context.Context, provider string) ([]*models.Claim, error) {
	const q = `SELECT id, provider, member_number, patient_name, service_date,
		invoice_number, claim_type, scheme_name, benefit_desc, billed_amount,
		currency, period, status, amount_paid, remittance_id, review_flag, run_id
		FROM claims
		WHERE provider = ? AND status IN (?, ?, ?, ?)
		ORDER BY service_date, id`

	rows, err := s.conn(ctx).QueryContext(ctx, q, provider,
		string(models.StatusAwaitingPayment), string(models.StatusUnpaid),
		string(models.StatusPartiallyPaid), string(models.StatusManualReview))
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "select outstanding claims", err).
			WithContext("provider", provider)
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "select outstanding claims", err)
	}
	return claims, nil
}

// CountClaims returns the number of claims ever uploaded for the provider.
func (s *SQLiteStore) CountClaims(ctx context.Context, provider string) (int, error) {
	var count int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE provider = ?`, provider).Scan(&count)
	if err != nil {
		return 0, errors.StorageError(errors.CodeStorageFailure, "count claims", err).
			WithContext("provider", provider)
	}
	return count, nil
}

// UpdateClaimMatch persists the settlement fields assigned by a run.
func (s *SQLiteStore) UpdateClaimMatch(ctx context.Context, claim *models.Claim) error {
	const q = `UPDATE claims
		SET status = ?, amount_paid = ?, remittance_id = ?, review_flag = ?, run_id = ?
		WHERE id = ?`
	_, err := s.conn(ctx).ExecContext(ctx, q,
		string(claim.Status), claim.AmountPaid.String(), claim.RemittanceID,
		boolToInt(claim.ReviewFlag), claim.RunID, claim.ID)
	if err != nil {
		return errors.StorageError(errors.CodeStorageFailure, "update claim", err).
			WithContext("claim_id", claim.ID)
	}
	return nil
}

// InsertRemittances persists a batch of new remittance lines.
func (s *SQLiteStore) InsertRemittances(ctx context.Context, lines []*models.RemittanceLine) error {
	const q = `INSERT INTO remittances
		(id, provider, employer_name, patient_name, member_number, claim_number,
		 bill_number, relationship, service_date, claim_amount, paid_amount,
		 payment_no, payment_mode, period, matched_claim_id, classification,
		 orphan, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	conn := s.conn(ctx)
	for _, r := range lines {
		_, err := conn.ExecContext(ctx, q,
			r.ID, r.Provider, r.EmployerName, r.PatientName, r.MemberNumber,
			r.ClaimNumber, r.BillNumber, r.Relationship,
			r.ServiceDate.Format("2006-01-02"),
			r.ClaimAmount.String(), r.PaidAmount.String(),
			r.PaymentNo, r.PaymentMode, r.Period.String(),
			r.MatchedClaimID, string(r.Classification), boolToInt(r.Orphan), r.RunID)
		if err != nil {
			return errors.StorageError(errors.CodeStorageFailure, "insert remittance", err).
				WithContext("remittance_id", r.ID)
		}
	}
	return nil
}

// SelectUnmatchedRemittances returns lines for the provider and filing
// period not yet consumed by a run, in upload order.
func (s *SQLiteStore) SelectUnmatchedRemittances(ctx context.Context, provider string, period models.Period) ([]*models.RemittanceLine, error) {
	const q = `SELECT id, provider, employer_name, patient_name, member_number,
		claim_number, bill_number, relationship, service_date, claim_amount,
		paid_amount, payment_no, payment_mode, period, matched_claim_id,
		classification, orphan, run_id
		FROM remittances
		WHERE provider = ? AND period = ? AND run_id = ''
		ORDER BY rowid`

	rows, err := s.conn(ctx).QueryContext(ctx, q, provider, period.String())
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "select unmatched remittances", err).
			WithContext("provider", provider)
	}
	defer rows.Close()

	var lines []*models.RemittanceLine
	for rows.Next() {
		line, err := scanRemittance(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "select unmatched remittances", err)
	}
	return lines, nil
}

// UpdateRemittanceMatch persists the match outcome assigned by a run.
func (s *SQLiteStore) UpdateRemittanceMatch(ctx context.Context, line *models.RemittanceLine) error {
	const q = `UPDATE remittances
		SET matched_claim_id = ?, classification = ?, orphan = ?, run_id = ?
		WHERE id = ?`
	_, err := s.conn(ctx).ExecContext(ctx, q,
		line.MatchedClaimID, string(line.Classification), boolToInt(line.Orphan),
		line.RunID, line.ID)
	if err != nil {
		return errors.StorageError(errors.CodeStorageFailure, "update remittance", err).
			WithContext("remittance_id", line.ID)
	}
	return nil
}

// InsertRun records a completed reconciliation run.
func (s *SQLiteStore) InsertRun(ctx context.Context, run *models.ReconciliationRun) error {
	const q = `INSERT INTO runs
		(id, provider, period, created_at, claims_searched, remittance_lines,
		 exact_matches, partial_matches, manual_review, orphans, claims_matched,
		 unpaid_claims)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.conn(ctx).ExecContext(ctx, q,
		run.ID, run.Provider, run.Period.String(), run.CreatedAt.Format(time.RFC3339),
		run.ClaimsSearched, run.RemittanceLines, run.ExactMatches, run.PartialMatches,
		run.ManualReview, run.Orphans, run.ClaimsMatched, run.UnpaidClaims)
	if err != nil {
		return errors.StorageError(errors.CodeStorageFailure, "insert run", err).
			WithContext("run_id", run.ID)
	}
	return nil
}

// ListRuns returns the provider's runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, provider string) ([]*models.ReconciliationRun, error) {
	const q = `SELECT id, provider, period, created_at, claims_searched,
		remittance_lines, exact_matches, partial_matches, manual_review,
		orphans, claims_matched, unpaid_claims
		FROM runs WHERE provider = ? ORDER BY created_at DESC`

	rows, err := s.conn(ctx).QueryContext(ctx, q, provider)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "list runs", err).
			WithContext("provider", provider)
	}
	defer rows.Close()

	var runs []*models.ReconciliationRun
	for rows.Next() {
		var run models.ReconciliationRun
		var period, createdAt string
		if err := rows.Scan(&run.ID, &run.Provider, &period, &createdAt,
			&run.ClaimsSearched, &run.RemittanceLines, &run.ExactMatches,
			&run.PartialMatches, &run.ManualReview, &run.Orphans,
			&run.ClaimsMatched, &run.UnpaidClaims); err != nil {
			return nil, errors.StorageError(errors.CodeStorageFailure, "scan run", err)
		}
		run.Period, err = models.ParsePeriod(period)
		if err != nil {
			return nil, errors.StorageError(errors.CodeStorageFailure, "scan run", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.StorageError(errors.CodeStorageFailure, "scan run", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "list runs", err)
	}
	return runs, nil
}

// PurgeProvider removes every record for a provider.
func (s *SQLiteStore) PurgeProvider(ctx context.Context, provider string) error {
	conn := s.conn(ctx)
	for _, table := range []string{"claims", "remittances", "runs"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE provider = ?", table)
		if _, err := conn.ExecContext(ctx, q, provider); err != nil {
			return errors.StorageError(errors.CodeStorageFailure, "purge provider", err).
				WithContext("provider", provider).
				WithContext("table", table)
		}
	}
	s.logger.WithField("provider", provider).Warn("Purged all provider records")
	return nil
}

func scanClaim(rows *sql.Rows) (*models.Claim, error) {
	var c models.Claim
	var serviceDate, billed, paid, period, status string
	var review int
	if err := rows.Scan(&c.ID, &c.Provider, &c.MemberNumber, &c.PatientName,
		&serviceDate, &c.InvoiceNumber, &c.ClaimType, &c.SchemeName,
		&c.BenefitDesc, &billed, &c.Currency, &period, &status, &paid,
		&c.RemittanceID, &review, &c.RunID); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan claim", err)
	}

	var err error
	if c.ServiceDate, err = time.Parse("2006-01-02", serviceDate); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan claim", err)
	}
	if c.BilledAmount, err = decimal.NewFromString(billed); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan claim", err)
	}
	if c.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan claim", err)
	}
	if c.Period, err = models.ParsePeriod(period); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan claim", err)
	}
	c.Status = models.ClaimStatus(status)
	c.ReviewFlag = review != 0
	return &c, nil
}

func scanRemittance(rows *sql.Rows) (*models.RemittanceLine, error) {
	var r models.RemittanceLine
	var serviceDate, claimAmount, paidAmount, period, classification string
	var orphan int
	if err := rows.Scan(&r.ID, &r.Provider, &r.EmployerName, &r.PatientName,
		&r.MemberNumber, &r.ClaimNumber, &r.BillNumber, &r.Relationship,
		&serviceDate, &claimAmount, &paidAmount, &r.PaymentNo, &r.PaymentMode,
		&period, &r.MatchedClaimID, &classification, &orphan, &r.RunID); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan remittance", err)
	}

	var err error
	if r.ServiceDate, err = time.Parse("2006-01-02", serviceDate); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan remittance", err)
	}
	if r.ClaimAmount, err = decimal.NewFromString(claimAmount); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan remittance", err)
	}
	if r.PaidAmount, err = decimal.NewFromString(paidAmount); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan remittance", err)
	}
	if r.Period, err = models.ParsePeriod(period); err != nil {
		return nil, errors.StorageError(errors.CodeStorageFailure, "scan remittance", err)
	}
	r.Classification = models.MatchType(classification)
	r.Orphan = orphan != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
