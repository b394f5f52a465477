package assistant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jeevansetu/telehealth-platform/internal/identity"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// Handler exposes the assistant endpoints. The caller's identity comes
// from the session, never from the request body.
type Handler struct {
	chat     *ChatService
	analysis *AnalysisService
	logger   *logging.Logger
}

func NewHandler(chat *ChatService, analysis *AnalysisService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{chat: chat, analysis: analysis, logger: logger}
}

// Routes returns a chi router with the assistant routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Post("/symptom-analysis", h.SymptomAnalysis)
	return r
}

// ChatRequest is one user chat turn.
type ChatRequest struct {
	Message string `json:"message"`
}

// Chat answers a triage chat message.
// POST /assistant/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.chat.Chat(r.Context(), session.UserID, req.Message)
	if err != nil {
		h.respondLLMError(w, "chat", err)
		return
	}
	h.respondJSON(w, http.StatusOK, reply)
}

// AnalysisRequest is the symptom checker input.
type AnalysisRequest struct {
	Symptoms string `json:"symptoms"`
}

// SymptomAnalysis runs the differential diagnosis and opens a case.
// POST /assistant/symptom-analysis
func (h *Handler) SymptomAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		h.respondError(w, http.StatusBadRequest, "symptoms are required")
		return
	}

	result, err := h.analysis.Analyze(r.Context(), session.UserID, req.Symptoms)
	if err != nil {
		h.respondLLMError(w, "symptom-analysis", err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondLLMError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrRateLimited):
		h.respondError(w, http.StatusTooManyRequests, ErrRateLimited.Error())
	case errors.Is(err, ErrQuotaExceeded):
		h.respondError(w, http.StatusPaymentRequired, ErrQuotaExceeded.Error())
	default:
		h.logger.Error("assistant request failed", "op", op, "error", err)
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
