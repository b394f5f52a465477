// Package cases implements the diagnostic case lifecycle: AI-generated
// reports move through intern review and doctor verification under
// exclusive, time-boxed claims arbitrated by the database.
package cases

import (
	"context"
	"time"

	"github.com/jeevansetu/telehealth-platform/internal/identity"
)

// Status is the workflow state of a diagnostic case.
type Status string

const (
	StatusGenerated      Status = "generated"
	StatusPendingIntern  Status = "pending_intern"
	StatusAssignedIntern Status = "assigned_intern"
	StatusInternVerified Status = "intern_verified"
	StatusPendingDoctor  Status = "pending_doctor"
	StatusAssignedDoctor Status = "assigned_doctor"
	StatusFinalized      Status = "finalized"
)

// DefaultClaimTTL is how long a reviewer holds an exclusive claim
// before it becomes eligible for release.
const DefaultClaimTTL = time.Hour

// Case is a single AI-generated diagnostic report.
type Case struct {
	ID               string     `json:"id"`
	PatientID        string     `json:"patient_id"`
	Symptoms         string     `json:"symptoms"`
	AIPrediction     string     `json:"ai_prediction"`
	ConfidenceScore  float64    `json:"confidence_score"`
	Status           Status     `json:"status"`
	AssignedInternID string     `json:"assigned_intern_id,omitempty"`
	AssignedDoctorID string     `json:"assigned_doctor_id,omitempty"`
	ClaimedAt        *time.Time `json:"claimed_at,omitempty"`
	ClaimExpiresAt   *time.Time `json:"claim_expires_at,omitempty"`
	Documents        []string   `json:"documents,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewCase is the input for creating a case from triage output.
type NewCase struct {
	PatientID       string
	Symptoms        string
	AIPrediction    string
	ConfidenceScore float64
	Status          Status
}

// Owner describes the reviewer currently holding a claim.
type Owner struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ClaimResult is the business outcome of a claim attempt. A lost race is
// an expected outcome, not an error.
type ClaimResult struct {
	Success      bool   `json:"success"`
	Status       Status `json:"status,omitempty"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	CurrentOwner *Owner `json:"current_owner,omitempty"`
}

// Claim conflict reasons surfaced in ClaimResult.Error.
const (
	ClaimErrAlreadyClaimed = "already_claimed"
	ClaimErrNotClaimable   = "not_claimable"
)

// InternReviewInput is a draft or final intern submission.
type InternReviewInput struct {
	CaseID      string `json:"caseId"`
	Notes       string `json:"notes"`
	Corrections string `json:"corrections"`
	IsDraft     bool   `json:"isDraft"`
}

// DoctorReviewInput finalizes a case.
type DoctorReviewInput struct {
	CaseID          string `json:"caseId"`
	VerifiedSummary string `json:"verifiedSummary"`
	Feedback        string `json:"feedback"`
	Prescription    string `json:"prescription"`
}

// SubmitResult reports a successful review submission.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChangeEvent describes a state-changing action on a case. Published to
// subscribers so reviewer queues can refresh without polling.
type ChangeEvent struct {
	CaseID  string    `json:"case_id"`
	Status  Status    `json:"status"`
	ActorID string    `json:"actor_id,omitempty"`
	Action  string    `json:"action"`
	At      time.Time `json:"at"`
}

// Notifier receives case change events. Implementations must not block.
type Notifier interface {
	NotifyCaseChanged(evt ChangeEvent)
}

// RoleChecker resolves the authoritative role for a user. The role on
// the request token is never trusted for authorization.
type RoleChecker interface {
	GetRole(ctx context.Context, userID string) (identity.Role, error)
}
