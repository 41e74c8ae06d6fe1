// internal/csvcodec/handler.go
package csvcodec

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"memberdesk/internal/roster"
)

type Handler struct {
	roster roster.Service
}

func NewHandler(rosterSvc roster.Service) *Handler {
	return &Handler{roster: rosterSvc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/export", h.handleExport)
	r.Post("/import", h.handleImport)
	return r
}

// handleExport streams the roster (optionally filtered) as a CSV download.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter := roster.Filter{
		Search:    r.URL.Query().Get("search"),
		YearLevel: r.URL.Query().Get("year"),
	}

	members, err := h.roster.Query(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(members) == 0 {
		http.Error(w, "no data to export", http.StatusNotFound)
		return
	}

	csvText, err := Export(members)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="membership_data.csv"`)
	io.WriteString(w, csvText)
}

// handleImport replaces the entire roster with the uploaded CSV. Validation
// is all-or-nothing: a schema or duplicate failure leaves the roster alone.
// Confirmation of the destructive replace is the caller's concern.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	members, err := Import(string(body))
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	if err := h.roster.ReplaceAll(r.Context(), members); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Imported int `json:"imported"`
	}{Imported: len(members)})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrSchemaInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateInImport):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
