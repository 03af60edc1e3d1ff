package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"filegate/internal/status"
)

// statusResponse is the polling payload. ErrorDetail is present only once an
// upload has failed.
type statusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

// handleStatus reports the current lifecycle state for an id. Read-only; a
// known id never errors, it simply reports whatever state the worker last
// wrote.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Invalid ID.")
			return
		}
		s.log.Error("status lookup failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{
		ID:          rec.ID,
		Status:      string(rec.State),
		ErrorDetail: rec.ErrorDetail,
	})
}
