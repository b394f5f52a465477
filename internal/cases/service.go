package cases

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// ReviewService handles review submissions and queue reads. Claims go
// through the Coordinator; everything else in the case workflow lands
// here, on top of the store's transactional writes.
type ReviewService struct {
	store    Store
	notifier Notifier
	metrics  *metrics.CaseMetrics
	logger   *logging.Logger
}

func NewReviewService(store Store, notifier Notifier, caseMetrics *metrics.CaseMetrics, logger *logging.Logger) *ReviewService {
	if store == nil {
		panic("cases: store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReviewService{
		store:    store,
		notifier: notifier,
		metrics:  caseMetrics,
		logger:   logger,
	}
}

// SubmitInternReview validates and records an intern review. A final
// submission hands the case to the doctor pool; a draft keeps the claim.
func (s *ReviewService) SubmitInternReview(ctx context.Context, internID string, in InternReviewInput) (*SubmitResult, error) {
	if internID == "" {
		return nil, fmt.Errorf("intern review: %w", ErrValidation)
	}
	in.Notes = strings.TrimSpace(in.Notes)
	in.Corrections = strings.TrimSpace(in.Corrections)
	if in.CaseID == "" {
		return nil, fmt.Errorf("intern review: caseId is required: %w", ErrValidation)
	}
	// Drafts may hold partial work; notes become mandatory only when the
	// review is handed to the doctor pool.
	if !in.IsDraft && in.Notes == "" {
		return nil, fmt.Errorf("intern review: notes are required on final submission: %w", ErrValidation)
	}

	if err := s.store.SubmitInternReview(ctx, internID, in); err != nil {
		s.metrics.ObserveReview("intern", "error")
		return nil, fmt.Errorf("intern review: %w", err)
	}

	outcome := "submitted"
	message := "review submitted, case moved to doctor queue"
	if in.IsDraft {
		outcome = "draft"
		message = "draft saved"
	}
	s.metrics.ObserveReview("intern", outcome)
	s.logger.Info("intern review recorded",
		"case_id", in.CaseID,
		"intern_id", internID,
		"draft", in.IsDraft)

	if !in.IsDraft {
		s.notify(ChangeEvent{
			CaseID:  in.CaseID,
			Status:  StatusPendingDoctor,
			ActorID: internID,
			Action:  ActionInternSubmitted,
		})
	}
	return &SubmitResult{Success: true, Message: message}, nil
}

// FinalizeDoctorReview validates and records the doctor verification,
// moving the case to its terminal state.
func (s *ReviewService) FinalizeDoctorReview(ctx context.Context, doctorID string, in DoctorReviewInput) (*SubmitResult, error) {
	if doctorID == "" {
		return nil, fmt.Errorf("doctor review: %w", ErrValidation)
	}
	in.VerifiedSummary = strings.TrimSpace(in.VerifiedSummary)
	if in.CaseID == "" || in.VerifiedSummary == "" {
		return nil, fmt.Errorf("doctor review: caseId and verifiedSummary are required: %w", ErrValidation)
	}

	if err := s.store.FinalizeDoctorReview(ctx, doctorID, in); err != nil {
		s.metrics.ObserveReview("doctor", "error")
		return nil, fmt.Errorf("doctor review: %w", err)
	}

	s.metrics.ObserveReview("doctor", "finalized")
	s.logger.Info("case finalized",
		"case_id", in.CaseID,
		"doctor_id", doctorID,
		"has_prescription", in.Prescription != "")

	s.notify(ChangeEvent{
		CaseID:  in.CaseID,
		Status:  StatusFinalized,
		ActorID: doctorID,
		Action:  ActionDoctorFinalized,
	})
	return &SubmitResult{Success: true, Message: "case finalized"}, nil
}

// InternQueue lists the unclaimed pool plus the intern's own claims.
func (s *ReviewService) InternQueue(ctx context.Context, internID string) ([]Case, error) {
	if internID == "" {
		return nil, fmt.Errorf("intern queue: %w", ErrValidation)
	}
	queue, err := s.store.ListInternQueue(ctx, internID)
	if err != nil {
		return nil, fmt.Errorf("intern queue: %w", err)
	}
	return queue, nil
}

// DoctorQueue lists the doctor pool plus the doctor's own claims.
func (s *ReviewService) DoctorQueue(ctx context.Context, doctorID string) ([]Case, error) {
	if doctorID == "" {
		return nil, fmt.Errorf("doctor queue: %w", ErrValidation)
	}
	queue, err := s.store.ListDoctorQueue(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor queue: %w", err)
	}
	return queue, nil
}

func (s *ReviewService) notify(evt ChangeEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyCaseChanged(evt)
}
