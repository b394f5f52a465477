package records

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeevansetu/telehealth-platform/internal/identity"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// Handler exposes health record endpoints scoped to the session user.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns a chi router with the health record routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{recordID}", h.Get)
	r.Delete("/{recordID}", h.Delete)
	return r
}

// List returns the caller's records.
// GET /records
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.repo.ListForUser(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("list records failed", "user_id", session.UserID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []Record{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"records": list})
}

// Create stores a new record for the caller.
// POST /records
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req NewRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.RecordDate.IsZero() {
		h.respondError(w, http.StatusBadRequest, "title and recordDate are required")
		return
	}

	created, err := h.repo.Create(r.Context(), session.UserID, &req)
	if err != nil {
		h.logger.Error("create record failed", "user_id", session.UserID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.respondJSON(w, http.StatusCreated, created)
}

// Get returns one record owned by the caller.
// GET /records/{recordID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rec, err := h.repo.Get(r.Context(), session.UserID, chi.URLParam(r, "recordID"))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			h.respondError(w, http.StatusNotFound, ErrRecordNotFound.Error())
			return
		}
		h.logger.Error("get record failed", "user_id", session.UserID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, rec)
}

// Delete removes one record owned by the caller.
// DELETE /records/{recordID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.repo.Delete(r.Context(), session.UserID, chi.URLParam(r, "recordID")); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			h.respondError(w, http.StatusNotFound, ErrRecordNotFound.Error())
			return
		}
		h.logger.Error("delete record failed", "user_id", session.UserID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"success": true})
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
