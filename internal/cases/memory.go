package cases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and local development.
// A single mutex stands in for the database's row-level arbitration, so
// claim semantics match the conditional updates in PostgresStore.
type MemoryStore struct {
	mu      sync.Mutex
	cases   map[string]*Case
	reviews map[string]map[string]*memReview // caseID -> internID -> review
	verifs  map[string][]memVerification
	audits  []memAudit
	names   map[string]string // reviewerID -> display name
}

type memReview struct {
	Notes       string
	Corrections string
	Status      string
	Forwarded   bool
	VerifiedAt  *time.Time
}

type memVerification struct {
	DoctorID        string
	VerifiedSummary string
	Feedback        string
	Prescription    string
	VerifiedAt      time.Time
}

type memAudit struct {
	CaseID  string
	ActorID string
	Action  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:   make(map[string]*Case),
		reviews: make(map[string]map[string]*memReview),
		verifs:  make(map[string][]memVerification),
		names:   make(map[string]string),
	}
}

var _ Store = (*MemoryStore)(nil)

// SetName registers a display name for conflict responses.
func (s *MemoryStore) SetName(reviewerID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[reviewerID] = name
}

// CreateCase inserts a new report.
func (s *MemoryStore) CreateCase(_ context.Context, in *NewCase) (*Case, error) {
	if in == nil || in.PatientID == "" || in.Symptoms == "" {
		return nil, ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	status := in.Status
	if status == "" {
		status = StatusPendingIntern
	}
	now := time.Now().UTC()
	c := &Case{
		ID:              uuid.NewString(),
		PatientID:       in.PatientID,
		Symptoms:        in.Symptoms,
		AIPrediction:    in.AIPrediction,
		ConfidenceScore: in.ConfidenceScore,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.cases[c.ID] = c
	return cloneCase(c), nil
}

// Seed inserts a fully-specified case, for tests.
func (s *MemoryStore) Seed(c Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.cases[c.ID] = cloneCase(&c)
}

// GetCase loads a case by id.
func (s *MemoryStore) GetCase(_ context.Context, caseID string) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return cloneCase(c), nil
}

// ClaimIntern mirrors the conditional update in PostgresStore.
func (s *MemoryStore) ClaimIntern(_ context.Context, caseID, internID string, claimedAt, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return false, nil
	}

	eligible := c.Status == StatusGenerated || c.Status == StatusPendingIntern ||
		(c.Status == StatusAssignedIntern && c.AssignedInternID == internID) ||
		(c.Status == StatusAssignedIntern && c.ClaimExpiresAt != nil && c.ClaimExpiresAt.Before(claimedAt))
	if !eligible {
		return false, nil
	}

	c.Status = StatusAssignedIntern
	c.AssignedInternID = internID
	c.ClaimedAt = timePtr(claimedAt)
	c.ClaimExpiresAt = timePtr(expiresAt)
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

// ClaimDoctor mirrors the conditional update in PostgresStore.
func (s *MemoryStore) ClaimDoctor(_ context.Context, caseID, doctorID string, claimedAt, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return false, nil
	}

	eligible := c.Status == StatusPendingDoctor || c.Status == StatusInternVerified ||
		(c.Status == StatusAssignedDoctor && c.AssignedDoctorID == doctorID) ||
		(c.Status == StatusAssignedDoctor && c.ClaimExpiresAt != nil && c.ClaimExpiresAt.Before(claimedAt))
	if !eligible {
		return false, nil
	}

	c.Status = StatusAssignedDoctor
	c.AssignedDoctorID = doctorID
	c.ClaimedAt = timePtr(claimedAt)
	c.ClaimExpiresAt = timePtr(expiresAt)
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

// InternOwner resolves the assigned intern.
func (s *MemoryStore) InternOwner(_ context.Context, caseID string) (*Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok || c.AssignedInternID == "" {
		return nil, nil
	}
	return &Owner{
		ID:        c.AssignedInternID,
		Name:      s.names[c.AssignedInternID],
		ClaimedAt: c.ClaimedAt,
		ExpiresAt: c.ClaimExpiresAt,
	}, nil
}

// DoctorOwner resolves the assigned doctor.
func (s *MemoryStore) DoctorOwner(_ context.Context, caseID string) (*Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok || c.AssignedDoctorID == "" {
		return nil, nil
	}
	return &Owner{
		ID:        c.AssignedDoctorID,
		Name:      s.names[c.AssignedDoctorID],
		ClaimedAt: c.ClaimedAt,
		ExpiresAt: c.ClaimExpiresAt,
	}, nil
}

// ReleaseExpiredInternClaims reverts expired intern claims.
func (s *MemoryStore) ReleaseExpiredInternClaims(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, c := range s.cases {
		if c.Status == StatusAssignedIntern && c.ClaimExpiresAt != nil && c.ClaimExpiresAt.Before(now) {
			c.Status = StatusPendingIntern
			c.AssignedInternID = ""
			c.ClaimedAt = nil
			c.ClaimExpiresAt = nil
			c.UpdatedAt = time.Now().UTC()
			released++
		}
	}
	return released, nil
}

// ReleaseExpiredDoctorClaims reverts expired doctor claims.
func (s *MemoryStore) ReleaseExpiredDoctorClaims(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, c := range s.cases {
		if c.Status == StatusAssignedDoctor && c.ClaimExpiresAt != nil && c.ClaimExpiresAt.Before(now) {
			c.Status = StatusPendingDoctor
			c.AssignedDoctorID = ""
			c.ClaimedAt = nil
			c.ClaimExpiresAt = nil
			c.UpdatedAt = time.Now().UTC()
			released++
		}
	}
	return released, nil
}

// SubmitInternReview upserts the review and advances the case on final
// submission.
func (s *MemoryStore) SubmitInternReview(_ context.Context, internID string, in InternReviewInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[in.CaseID]
	if !ok {
		return ErrCaseNotFound
	}
	if c.Status != StatusAssignedIntern || c.AssignedInternID != internID {
		return ErrNotAssigned
	}

	byIntern := s.reviews[in.CaseID]
	if byIntern == nil {
		byIntern = make(map[string]*memReview)
		s.reviews[in.CaseID] = byIntern
	}
	now := time.Now().UTC()
	review := &memReview{
		Notes:       in.Notes,
		Corrections: in.Corrections,
		Status:      "draft",
		Forwarded:   !in.IsDraft,
	}
	if !in.IsDraft {
		review.Status = "submitted"
		review.VerifiedAt = timePtr(now)
	}
	byIntern[internID] = review

	if !in.IsDraft {
		c.Status = StatusPendingDoctor
		c.ClaimedAt = nil
		c.ClaimExpiresAt = nil
		c.UpdatedAt = now
		s.audits = append(s.audits, memAudit{CaseID: in.CaseID, ActorID: internID, Action: ActionInternSubmitted})
	}
	return nil
}

// FinalizeDoctorReview records the verification and closes the case.
func (s *MemoryStore) FinalizeDoctorReview(_ context.Context, doctorID string, in DoctorReviewInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[in.CaseID]
	if !ok {
		return ErrCaseNotFound
	}
	if c.Status != StatusAssignedDoctor || c.AssignedDoctorID != doctorID {
		return ErrNotAssigned
	}

	now := time.Now().UTC()
	s.verifs[in.CaseID] = append(s.verifs[in.CaseID], memVerification{
		DoctorID:        doctorID,
		VerifiedSummary: in.VerifiedSummary,
		Feedback:        in.Feedback,
		Prescription:    in.Prescription,
		VerifiedAt:      now,
	})
	c.Status = StatusFinalized
	c.ClaimedAt = nil
	c.ClaimExpiresAt = nil
	c.UpdatedAt = now
	s.audits = append(s.audits, memAudit{CaseID: in.CaseID, ActorID: doctorID, Action: ActionDoctorFinalized})
	return nil
}

// ListInternQueue returns the intern-visible projection.
func (s *MemoryStore) ListInternQueue(_ context.Context, internID string) ([]Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Case
	for _, c := range s.cases {
		if c.Status == StatusGenerated || c.Status == StatusPendingIntern ||
			(c.Status == StatusAssignedIntern && c.AssignedInternID == internID) {
			out = append(out, *cloneCase(c))
		}
	}
	sortCases(out)
	return out, nil
}

// ListDoctorQueue returns the doctor-visible projection.
func (s *MemoryStore) ListDoctorQueue(_ context.Context, doctorID string) ([]Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Case
	for _, c := range s.cases {
		if c.Status == StatusPendingDoctor || c.Status == StatusInternVerified ||
			(c.Status == StatusAssignedDoctor && c.AssignedDoctorID == doctorID) {
			out = append(out, *cloneCase(c))
		}
	}
	sortCases(out)
	return out, nil
}

// ReviewCount reports the number of review rows stored for a case.
func (s *MemoryStore) ReviewCount(caseID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews[caseID])
}

// ReviewNotes returns the stored notes for a (case, intern) pair.
func (s *MemoryStore) ReviewNotes(caseID, internID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	review, ok := s.reviews[caseID][internID]
	if !ok {
		return "", false
	}
	return review.Notes, true
}

// AuditActions returns the recorded audit actions for a case, in order.
func (s *MemoryStore) AuditActions(caseID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.audits {
		if a.CaseID == caseID {
			out = append(out, a.Action)
		}
	}
	return out
}

func cloneCase(c *Case) *Case {
	out := *c
	if c.ClaimedAt != nil {
		out.ClaimedAt = timePtr(*c.ClaimedAt)
	}
	if c.ClaimExpiresAt != nil {
		out.ClaimExpiresAt = timePtr(*c.ClaimExpiresAt)
	}
	if c.Documents != nil {
		out.Documents = append([]string(nil), c.Documents...)
	}
	return &out
}

func sortCases(list []Case) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
