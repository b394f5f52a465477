package cases

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeevansetu/telehealth-platform/internal/audit"
	"github.com/jeevansetu/telehealth-platform/internal/identity"
	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// AuditReader exposes the read side of the case audit trail.
type AuditReader interface {
	ListForCase(ctx context.Context, caseID string) ([]audit.Entry, error)
}

// Handler provides the case workflow HTTP endpoints.
type Handler struct {
	coordinator *Coordinator
	reviews     *ReviewService
	auditLog    AuditReader
	metrics     *metrics.CaseMetrics
	logger      *logging.Logger
}

// NewHandler wires the case workflow endpoints. auditLog and
// caseMetrics may be nil.
func NewHandler(coordinator *Coordinator, reviews *ReviewService, auditLog AuditReader, caseMetrics *metrics.CaseMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		coordinator: coordinator,
		reviews:     reviews,
		auditLog:    auditLog,
		metrics:     caseMetrics,
		logger:      logger,
	}
}

// Routes returns a chi router with the case workflow routes. All of
// them require an authenticated session.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/claim", h.Claim)
	r.Post("/intern-review", h.SubmitInternReview)
	r.Post("/doctor-review", h.FinalizeDoctorReview)
	r.Get("/queue/intern", h.InternQueue)
	r.Get("/queue/doctor", h.DoctorQueue)
	r.Get("/{caseID}/audit", h.CaseAudit)
	return r
}

// ClaimRequest is the request body for claiming a case.
type ClaimRequest struct {
	CaseID string `json:"caseId"`
	Role   string `json:"role"`
}

// Claim attempts an exclusive claim on a case.
// POST /cases/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CaseID == "" || req.Role == "" {
		h.respondError(w, http.StatusBadRequest, "caseId and role are required")
		return
	}

	result, err := h.coordinator.Claim(r.Context(), req.CaseID, session.UserID, identity.Role(req.Role))
	if err != nil {
		h.respondWorkflowError(w, "claim", req.CaseID, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	h.respondJSON(w, status, result)
	h.metrics.ObserveHandlerLatency("claim", time.Since(start).Seconds())
}

// SubmitInternReview records an intern's draft or final review.
// POST /cases/intern-review
func (h *Handler) SubmitInternReview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req InternReviewInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.reviews.SubmitInternReview(r.Context(), session.UserID, req)
	if err != nil {
		h.respondWorkflowError(w, "intern-review", req.CaseID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
	h.metrics.ObserveHandlerLatency("intern_review", time.Since(start).Seconds())
}

// FinalizeDoctorReview records the doctor verification and finalizes
// the case.
// POST /cases/doctor-review
func (h *Handler) FinalizeDoctorReview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req DoctorReviewInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.reviews.FinalizeDoctorReview(r.Context(), session.UserID, req)
	if err != nil {
		h.respondWorkflowError(w, "doctor-review", req.CaseID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
	h.metrics.ObserveHandlerLatency("doctor_review", time.Since(start).Seconds())
}

// InternQueue lists the unclaimed pool plus the caller's claimed cases.
// GET /cases/queue/intern
func (h *Handler) InternQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	queue, err := h.reviews.InternQueue(r.Context(), session.UserID)
	if err != nil {
		h.respondWorkflowError(w, "intern-queue", "", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"cases": queue})
}

// DoctorQueue lists the doctor pool plus the caller's claimed cases.
// GET /cases/queue/doctor
func (h *Handler) DoctorQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	queue, err := h.reviews.DoctorQueue(r.Context(), session.UserID)
	if err != nil {
		h.respondWorkflowError(w, "doctor-queue", "", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"cases": queue})
}

// CaseAudit returns a case's audit trail, newest first.
// GET /cases/{caseID}/audit
func (h *Handler) CaseAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.SessionFromContext(r.Context()); !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.auditLog == nil {
		h.respondError(w, http.StatusNotFound, "audit log not available")
		return
	}

	caseID := chi.URLParam(r, "caseID")
	if caseID == "" {
		h.respondError(w, http.StatusBadRequest, "case id required")
		return
	}

	entries, err := h.auditLog.ListForCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("audit lookup failed", "case_id", caseID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// respondWorkflowError maps workflow errors onto HTTP statuses.
func (h *Handler) respondWorkflowError(w http.ResponseWriter, op, caseID string, err error) {
	switch {
	case errors.Is(err, ErrCaseNotFound):
		h.respondError(w, http.StatusNotFound, "case not found")
	case errors.Is(err, ErrNotAssigned):
		h.respondError(w, http.StatusForbidden, ErrNotAssigned.Error())
	case errors.Is(err, ErrRoleMismatch):
		h.respondError(w, http.StatusForbidden, ErrRoleMismatch.Error())
	case errors.Is(err, ErrValidation):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("case workflow failure", "op", op, "case_id", caseID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]any{"success": false, "error": message})
}
