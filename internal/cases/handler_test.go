package cases

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevansetu/telehealth-platform/internal/audit"
	"github.com/jeevansetu/telehealth-platform/internal/identity"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

type stubAuditReader struct {
	entries []audit.Entry
	err     error
}

func (s *stubAuditReader) ListForCase(_ context.Context, _ string) ([]audit.Entry, error) {
	return s.entries, s.err
}

func newTestHandler(store *MemoryStore, roles map[string]identity.Role, auditLog AuditReader) *Handler {
	logger := logging.New("error")
	coord := NewCoordinator(store, &stubRoles{roles: roles}, nil, nil, nil, logger, time.Hour)
	svc := NewReviewService(store, nil, nil, logger)
	return NewHandler(coord, svc, auditLog, nil, logger)
}

func doRequest(t *testing.T, h *Handler, method, target string, body any, session *identity.Session) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if session != nil {
		req = req.WithContext(identity.WithSession(req.Context(), *session))
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandlerClaimSuccess(t *testing.T) {
	store := NewMemoryStore()
	caseID := seedPendingCase(store)
	h := newTestHandler(store, map[string]identity.Role{"intern-1": identity.RoleIntern}, nil)

	rec := doRequest(t, h, http.MethodPost, "/claim",
		ClaimRequest{CaseID: caseID, Role: "intern"},
		&identity.Session{UserID: "intern-1", Role: identity.RoleIntern})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, string(StatusAssignedIntern), body["status"])
}

func TestHandlerClaimConflict(t *testing.T) {
	store := NewMemoryStore()
	caseID := seedPendingCase(store)
	store.SetName("intern-1", "Asha Rao")
	roles := map[string]identity.Role{
		"intern-1": identity.RoleIntern,
		"intern-2": identity.RoleIntern,
	}
	h := newTestHandler(store, roles, nil)

	first := doRequest(t, h, http.MethodPost, "/claim",
		ClaimRequest{CaseID: caseID, Role: "intern"},
		&identity.Session{UserID: "intern-1", Role: identity.RoleIntern})
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, h, http.MethodPost, "/claim",
		ClaimRequest{CaseID: caseID, Role: "intern"},
		&identity.Session{UserID: "intern-2", Role: identity.RoleIntern})

	assert.Equal(t, http.StatusConflict, second.Code)
	body := decodeBody(t, second)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, ClaimErrAlreadyClaimed, body["error"])
	owner, ok := body["current_owner"].(map[string]any)
	require.True(t, ok, "conflict body must include current_owner")
	assert.Equal(t, "intern-1", owner["id"])
	assert.Equal(t, "Asha Rao", owner["name"])
}

func TestHandlerClaimUnknownCase(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(store, map[string]identity.Role{"intern-1": identity.RoleIntern}, nil)

	rec := doRequest(t, h, http.MethodPost, "/claim",
		ClaimRequest{CaseID: "missing", Role: "intern"},
		&identity.Session{UserID: "intern-1", Role: identity.RoleIntern})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerClaimRoleMismatch(t *testing.T) {
	store := NewMemoryStore()
	caseID := seedPendingCase(store)
	h := newTestHandler(store, map[string]identity.Role{"patient-1": identity.RolePatient}, nil)

	rec := doRequest(t, h, http.MethodPost, "/claim",
		ClaimRequest{CaseID: caseID, Role: "intern"},
		&identity.Session{UserID: "patient-1", Role: identity.RolePatient})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerClaimRequiresAuth(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(store, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/claim", ClaimRequest{CaseID: "x", Role: "intern"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerClaimValidatesBody(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(store, nil, nil)
	session := &identity.Session{UserID: "intern-1", Role: identity.RoleIntern}

	rec := doRequest(t, h, http.MethodPost, "/claim", ClaimRequest{Role: "intern"}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/claim", bytes.NewBufferString("{not json"))
	req = req.WithContext(identity.WithSession(req.Context(), *session))
	rec2 := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestHandlerInternReview(t *testing.T) {
	store := NewMemoryStore()
	caseID := seedAssignedInternCase(store, "intern-1")
	h := newTestHandler(store, map[string]identity.Role{"intern-1": identity.RoleIntern}, nil)

	rec := doRequest(t, h, http.MethodPost, "/intern-review",
		InternReviewInput{CaseID: caseID, Notes: "looks correct"},
		&identity.Session{UserID: "intern-1", Role: identity.RoleIntern})

	assert.Equal(t, http.StatusOK, rec.Code)
	got, err := store.GetCase(context.Background(), caseID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingDoctor, got.Status)
}

func TestHandlerInternReviewNotAssigned(t *testing.T) {
	store := NewMemoryStore()
	caseID := seedAssignedInternCase(store, "intern-1")
	h := newTestHandler(store, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/intern-review",
		InternReviewInput{CaseID: caseID, Notes: "not mine"},
		&identity.Session{UserID: "intern-2", Role: identity.RoleIntern})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestHandlerInternReviewValidation(t *testing.T) {
	store := NewMemoryStore()
	h := newTestHandler(store, nil, nil)

	rec := doRequest(t, h, http.MethodPost, "/intern-review",
		InternReviewInput{CaseID: "case-1"},
		&identity.Session{UserID: "intern-1", Role: identity.RoleIntern})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDoctorReview(t *testing.T) {
	store := NewMemoryStore()
	caseID := seedAssignedDoctorCase(store, "doctor-1")
	h := newTestHandler(store, map[string]identity.Role{"doctor-1": identity.RoleDoctor}, nil)

	rec := doRequest(t, h, http.MethodPost, "/doctor-review",
		DoctorReviewInput{CaseID: caseID, VerifiedSummary: "confirmed", Prescription: "rest"},
		&identity.Session{UserID: "doctor-1", Role: identity.RoleDoctor})

	assert.Equal(t, http.StatusOK, rec.Code)
	got, err := store.GetCase(context.Background(), caseID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinalized, got.Status)
}

func TestHandlerQueues(t *testing.T) {
	store := NewMemoryStore()
	seedPendingCase(store)
	h := newTestHandler(store, nil, nil)

	rec := doRequest(t, h, http.MethodGet, "/queue/intern", nil,
		&identity.Session{UserID: "intern-1", Role: identity.RoleIntern})
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	queue, ok := body["cases"].([]any)
	require.True(t, ok)
	assert.Len(t, queue, 1)

	rec = doRequest(t, h, http.MethodGet, "/queue/doctor", nil,
		&identity.Session{UserID: "doctor-1", Role: identity.RoleDoctor})
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	queue, ok = body["cases"].([]any)
	require.True(t, ok)
	assert.Empty(t, queue)
}

func TestHandlerCaseAudit(t *testing.T) {
	store := NewMemoryStore()
	auditLog := &stubAuditReader{entries: []audit.Entry{
		{ID: "a1", CaseID: "case-1", ActorID: "intern-1", Action: "intern_claimed", CreatedAt: time.Now().UTC()},
	}}
	h := newTestHandler(store, nil, auditLog)

	rec := doRequest(t, h, http.MethodGet, "/case-1/audit", nil,
		&identity.Session{UserID: "doctor-1", Role: identity.RoleDoctor})
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	first := entries[0].(map[string]any)
	assert.Equal(t, "intern_claimed", first["action"])
}
