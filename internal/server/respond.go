// ABOUTME: JSON response and error helpers shared by all HTTP handlers
// ABOUTME: Maps store sentinel errors onto HTTP status codes in one place

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/billfold/billfold/internal/store"
)

// sendJSON writes v as a JSON response with the given status.
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error body with the given status.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendStoreError maps a store error onto the right HTTP status. Sentinel
// errors become client errors; anything else is a store failure.
func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateUsername):
		s.sendJSONError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, store.ErrDuplicateRef):
		s.sendJSONError(w, http.StatusConflict, "ref already exists")
	case errors.Is(err, store.ErrDuplicateFilename):
		s.sendJSONError(w, http.StatusConflict, "filename already exists")
	default:
		s.logger.Error("store operation failed", "error", err)
		s.sendJSONError(w, http.StatusServiceUnavailable, "store unavailable")
	}
}

// decodeJSON parses a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
