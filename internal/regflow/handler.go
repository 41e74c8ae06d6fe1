// internal/regflow/handler.go
package regflow

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"memberdesk/internal/roster"
	"memberdesk/internal/session"
	"memberdesk/internal/watch"
)

// Handler exposes the registration workflow over HTTP. The session service
// identifies the applicant; the tracker backs the status poll endpoint.
type Handler struct {
	service  Service
	sessions session.Service
	tracker  *watch.Tracker
}

func NewHandler(service Service, sessions session.Service, tracker *watch.Tracker) *Handler {
	return &Handler{service: service, sessions: sessions, tracker: tracker}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleSubmit)
	r.Get("/me", h.handleMine)
	r.Delete("/me", h.handleDiscard)
	r.Get("/me/status", h.handleStatus)
	r.Get("/pending", h.handleListPending)
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/reject", h.handleReject)
	return r
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.Current(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var input SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reg, err := h.service.Submit(r.Context(), user.ID, user.Username, input)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(reg)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.Current(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	reg, err := h.service.ForUser(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	json.NewEncoder(w).Encode(reg)
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.Current(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := h.service.DiscardForUser(r.Context(), user.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus runs one watch step for the current user. The response
// carries the transition only when the status changed since the last poll.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.Current(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	transition, err := h.tracker.Observe(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status, ok, err := h.service.StatusForUser(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Status     string            `json:"status,omitempty"`
		Registered bool              `json:"registered"`
		Transition *watch.Transition `json:"transition,omitempty"`
	}{Status: status, Registered: ok, Transition: transition})
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(pending)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	json.NewEncoder(w).Encode(member)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	json.NewEncoder(w).Encode(reg)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrMissingProof):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, roster.ErrDuplicateStudentNumber):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
