package cases

import (
	"context"
	"time"
)

// Store is the durable record of diagnostic cases. All claim transitions
// are conditional updates so concurrent requests are arbitrated by the
// database, never by application-level read-modify-write.
type Store interface {
	// CreateCase inserts a new report produced by the triage pipeline.
	CreateCase(ctx context.Context, in *NewCase) (*Case, error)

	// GetCase loads a case by id, returning ErrCaseNotFound when absent.
	GetCase(ctx context.Context, caseID string) (*Case, error)

	// ClaimIntern attempts to take (or idempotently re-take) the intern
	// claim in a single conditional update. Returns false when another
	// reviewer holds an unexpired claim or the case is not in an
	// intern-eligible state.
	ClaimIntern(ctx context.Context, caseID, internID string, claimedAt, expiresAt time.Time) (bool, error)

	// ClaimDoctor is the doctor-side analogue of ClaimIntern.
	ClaimDoctor(ctx context.Context, caseID, doctorID string, claimedAt, expiresAt time.Time) (bool, error)

	// InternOwner and DoctorOwner resolve the reviewer currently
	// assigned, with display name, for conflict responses.
	InternOwner(ctx context.Context, caseID string) (*Owner, error)
	DoctorOwner(ctx context.Context, caseID string) (*Owner, error)

	// ReleaseExpiredInternClaims reverts assigned_intern cases whose
	// claim expired before now back to the pending pool. Returns the
	// number of released claims.
	ReleaseExpiredInternClaims(ctx context.Context, now time.Time) (int64, error)

	// ReleaseExpiredDoctorClaims is the doctor-side analogue.
	ReleaseExpiredDoctorClaims(ctx context.Context, now time.Time) (int64, error)

	// SubmitInternReview upserts the (case, intern) review row and, on a
	// final submission, advances the case to pending_doctor and appends
	// the audit entry. All writes commit or roll back together.
	SubmitInternReview(ctx context.Context, internID string, in InternReviewInput) error

	// FinalizeDoctorReview records the doctor verification, moves the
	// case to its terminal finalized state and appends the audit entry,
	// transactionally.
	FinalizeDoctorReview(ctx context.Context, doctorID string, in DoctorReviewInput) error

	// ListInternQueue returns cases visible to the intern: the unclaimed
	// pool plus cases currently assigned to them.
	ListInternQueue(ctx context.Context, internID string) ([]Case, error)

	// ListDoctorQueue is the doctor-side analogue.
	ListDoctorQueue(ctx context.Context, doctorID string) ([]Case, error)
}
