package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxDB is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists cases in the relational database.
type PostgresStore struct {
	db pgxDB
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("cases: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db pgxDB) *PostgresStore {
	if db == nil {
		panic("cases: db required")
	}
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const caseColumns = `id, patient_id, symptoms, ai_prediction, confidence_score, status,
	       assigned_intern_id, assigned_doctor_id, claimed_at, claim_expires_at,
	       documents, created_at, updated_at`

// CreateCase inserts a new report row.
func (s *PostgresStore) CreateCase(ctx context.Context, in *NewCase) (*Case, error) {
	if in == nil || in.PatientID == "" || in.Symptoms == "" {
		return nil, ErrValidation
	}
	status := in.Status
	if status == "" {
		status = StatusPendingIntern
	}

	id := uuid.New()
	query := `
		INSERT INTO ai_reports (id, patient_id, symptoms, ai_prediction, confidence_score, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := s.db.QueryRow(ctx, query,
		id,
		in.PatientID,
		in.Symptoms,
		in.AIPrediction,
		in.ConfidenceScore,
		status,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("cases: insert report failed: %w", err)
	}

	return &Case{
		ID:              id.String(),
		PatientID:       in.PatientID,
		Symptoms:        in.Symptoms,
		AIPrediction:    in.AIPrediction,
		ConfidenceScore: in.ConfidenceScore,
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

// GetCase loads a case by id.
func (s *PostgresStore) GetCase(ctx context.Context, caseID string) (*Case, error) {
	query := `SELECT ` + caseColumns + ` FROM ai_reports WHERE id = $1`
	c, err := scanCase(s.db.QueryRow(ctx, query, caseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("cases: select report failed: %w", err)
	}
	return c, nil
}

// ClaimIntern takes the intern claim with a single conditional update.
// The WHERE clause admits the unclaimed pool, an idempotent re-claim by
// the same intern, and lazy takeover of an expired claim; any other
// state loses with zero rows affected.
func (s *PostgresStore) ClaimIntern(ctx context.Context, caseID, internID string, claimedAt, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE ai_reports
		SET status = 'assigned_intern',
		    assigned_intern_id = $2,
		    claimed_at = $3,
		    claim_expires_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND (
		        status IN ('generated', 'pending_intern')
		     OR (status = 'assigned_intern' AND assigned_intern_id = $2)
		     OR (status = 'assigned_intern' AND claim_expires_at < $3)
		  )
	`
	ct, err := s.db.Exec(ctx, query, caseID, internID, claimedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("cases: intern claim failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// ClaimDoctor takes the doctor claim; same arbitration as ClaimIntern.
func (s *PostgresStore) ClaimDoctor(ctx context.Context, caseID, doctorID string, claimedAt, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE ai_reports
		SET status = 'assigned_doctor',
		    assigned_doctor_id = $2,
		    claimed_at = $3,
		    claim_expires_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND (
		        status IN ('pending_doctor', 'intern_verified')
		     OR (status = 'assigned_doctor' AND assigned_doctor_id = $2)
		     OR (status = 'assigned_doctor' AND claim_expires_at < $3)
		  )
	`
	ct, err := s.db.Exec(ctx, query, caseID, doctorID, claimedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("cases: doctor claim failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// InternOwner resolves the intern currently assigned to the case.
func (s *PostgresStore) InternOwner(ctx context.Context, caseID string) (*Owner, error) {
	query := `
		SELECT p.id, p.full_name, r.claimed_at, r.claim_expires_at
		FROM ai_reports r
		JOIN profiles p ON p.id = r.assigned_intern_id
		WHERE r.id = $1
	`
	return s.owner(ctx, query, caseID)
}

// DoctorOwner resolves the doctor currently assigned to the case.
func (s *PostgresStore) DoctorOwner(ctx context.Context, caseID string) (*Owner, error) {
	query := `
		SELECT p.id, p.full_name, r.claimed_at, r.claim_expires_at
		FROM ai_reports r
		JOIN profiles p ON p.id = r.assigned_doctor_id
		WHERE r.id = $1
	`
	return s.owner(ctx, query, caseID)
}

func (s *PostgresStore) owner(ctx context.Context, query, caseID string) (*Owner, error) {
	var owner Owner
	var claimedAt, expiresAt pgtype.Timestamptz
	if err := s.db.QueryRow(ctx, query, caseID).Scan(&owner.ID, &owner.Name, &claimedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cases: owner lookup failed: %w", err)
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		owner.ClaimedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		owner.ExpiresAt = &t
	}
	return &owner, nil
}

// ReleaseExpiredInternClaims reverts expired intern claims to the pool.
// The conditional WHERE makes it safe to race a fresh claim: whichever
// update commits first wins and the other matches zero rows.
func (s *PostgresStore) ReleaseExpiredInternClaims(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE ai_reports
		SET status = 'pending_intern',
		    assigned_intern_id = NULL,
		    claimed_at = NULL,
		    claim_expires_at = NULL,
		    updated_at = now()
		WHERE status = 'assigned_intern' AND claim_expires_at < $1
	`
	ct, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("cases: release intern claims failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

// ReleaseExpiredDoctorClaims reverts expired doctor claims to the pool.
func (s *PostgresStore) ReleaseExpiredDoctorClaims(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE ai_reports
		SET status = 'pending_doctor',
		    assigned_doctor_id = NULL,
		    claimed_at = NULL,
		    claim_expires_at = NULL,
		    updated_at = now()
		WHERE status = 'assigned_doctor' AND claim_expires_at < $1
	`
	ct, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("cases: release doctor claims failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

// SubmitInternReview upserts the review and advances the case on a final
// submission. Review upsert, status transition and audit entry commit or
// roll back together.
func (s *PostgresStore) SubmitInternReview(ctx context.Context, internID string, in InternReviewInput) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cases: begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var assignedTo pgtype.Text
	var status string
	guard := `SELECT assigned_intern_id, status FROM ai_reports WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRow(ctx, guard, in.CaseID).Scan(&assignedTo, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCaseNotFound
		}
		return fmt.Errorf("cases: submit guard failed: %w", err)
	}
	if !assignedTo.Valid || assignedTo.String != internID || Status(status) != StatusAssignedIntern {
		return ErrNotAssigned
	}

	now := time.Now().UTC()
	reviewStatus := "submitted"
	var verifiedAt any = now
	if in.IsDraft {
		reviewStatus = "draft"
		verifiedAt = nil
	}

	upsert := `
		INSERT INTO intern_reviews (id, report_id, intern_id, notes, corrections, status, forwarded_to_doctor, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (report_id, intern_id) DO UPDATE
		SET notes = EXCLUDED.notes,
		    corrections = EXCLUDED.corrections,
		    status = EXCLUDED.status,
		    forwarded_to_doctor = EXCLUDED.forwarded_to_doctor,
		    verified_at = EXCLUDED.verified_at
	`
	if _, err := tx.Exec(ctx, upsert,
		uuid.New(),
		in.CaseID,
		internID,
		in.Notes,
		in.Corrections,
		reviewStatus,
		!in.IsDraft,
		verifiedAt,
	); err != nil {
		return fmt.Errorf("cases: review upsert failed: %w", err)
	}

	if !in.IsDraft {
		// The claim timestamps are cleared; the intern id stays for
		// provenance but no longer authorizes anything.
		transition := `
			UPDATE ai_reports
			SET status = 'pending_doctor',
			    claimed_at = NULL,
			    claim_expires_at = NULL,
			    updated_at = now()
			WHERE id = $1 AND status = 'assigned_intern'
		`
		ct, err := tx.Exec(ctx, transition, in.CaseID)
		if err != nil {
			return fmt.Errorf("cases: submit transition failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrNotAssigned
		}

		if err := appendAudit(ctx, tx, in.CaseID, internID, ActionInternSubmitted, map[string]any{
			"timestamp": now.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cases: submit commit failed: %w", err)
	}
	return nil
}

// FinalizeDoctorReview records the verification and terminally closes
// the case.
func (s *PostgresStore) FinalizeDoctorReview(ctx context.Context, doctorID string, in DoctorReviewInput) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cases: begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var assignedTo pgtype.Text
	var status string
	guard := `SELECT assigned_doctor_id, status FROM ai_reports WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRow(ctx, guard, in.CaseID).Scan(&assignedTo, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCaseNotFound
		}
		return fmt.Errorf("cases: finalize guard failed: %w", err)
	}
	if !assignedTo.Valid || assignedTo.String != doctorID || Status(status) != StatusAssignedDoctor {
		return ErrNotAssigned
	}

	now := time.Now().UTC()
	insert := `
		INSERT INTO doctor_verifications (id, report_id, doctor_id, action, verified_summary, feedback, prescription, final_conclusion, verified_at)
		VALUES ($1, $2, $3, 'finalized', $4, $5, $6, $4, $7)
	`
	if _, err := tx.Exec(ctx, insert,
		uuid.New(),
		in.CaseID,
		doctorID,
		in.VerifiedSummary,
		in.Feedback,
		in.Prescription,
		now,
	); err != nil {
		return fmt.Errorf("cases: verification insert failed: %w", err)
	}

	transition := `
		UPDATE ai_reports
		SET status = 'finalized',
		    claimed_at = NULL,
		    claim_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND status = 'assigned_doctor'
	`
	ct, err := tx.Exec(ctx, transition, in.CaseID)
	if err != nil {
		return fmt.Errorf("cases: finalize transition failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotAssigned
	}

	if err := appendAudit(ctx, tx, in.CaseID, doctorID, ActionDoctorFinalized, map[string]any{
		"timestamp":        now.Format(time.RFC3339),
		"has_prescription": in.Prescription != "",
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cases: finalize commit failed: %w", err)
	}
	return nil
}

// ListInternQueue returns the intern-visible projection.
func (s *PostgresStore) ListInternQueue(ctx context.Context, internID string) ([]Case, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM ai_reports
		WHERE status IN ('generated', 'pending_intern')
		   OR (status = 'assigned_intern' AND assigned_intern_id = $1)
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, internID)
}

// ListDoctorQueue returns the doctor-visible projection.
func (s *PostgresStore) ListDoctorQueue(ctx context.Context, doctorID string) ([]Case, error) {
	query := `
		SELECT ` + caseColumns + `
		FROM ai_reports
		WHERE status IN ('pending_doctor', 'intern_verified')
		   OR (status = 'assigned_doctor' AND assigned_doctor_id = $1)
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, doctorID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Case, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cases: queue query failed: %w", err)
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("cases: queue scan failed: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var confidence pgtype.Float8
	var internID, doctorID pgtype.Text
	var claimedAt, expiresAt pgtype.Timestamptz
	if err := row.Scan(
		&c.ID,
		&c.PatientID,
		&c.Symptoms,
		&c.AIPrediction,
		&confidence,
		&c.Status,
		&internID,
		&doctorID,
		&claimedAt,
		&expiresAt,
		&c.Documents,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if confidence.Valid {
		c.ConfidenceScore = confidence.Float64
	}
	if internID.Valid {
		c.AssignedInternID = internID.String
	}
	if doctorID.Valid {
		c.AssignedDoctorID = doctorID.String
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		c.ClaimedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ClaimExpiresAt = &t
	}
	return &c, nil
}

func appendAudit(ctx context.Context, tx pgx.Tx, caseID, actorID, action string, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("cases: encode audit details: %w", err)
	}
	query := `
		INSERT INTO case_audit_logs (id, report_id, actor_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, query, uuid.New(), caseID, actorID, action, payload); err != nil {
		return fmt.Errorf("cases: audit insert failed: %w", err)
	}
	return nil
}
