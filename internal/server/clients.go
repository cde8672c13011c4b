// ABOUTME: HTTP handlers for the client collection
// ABOUTME: Non-admin callers only see and touch records they own

package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/store"
)

// ClientRequest is the body of POST/PUT /api/clients. On update, empty
// strings and a missing attrs key mean "leave unchanged"; send an explicit
// empty object ({}) to clear attrs.
type ClientRequest struct {
	Ref   string         `json:"ref"`
	Name  string         `json:"name"`
	Attrs map[string]any `json:"attrs"`
}

// ClientResponse is the wire form of a client record.
type ClientResponse struct {
	ID        string         `json:"id"`
	Ref       string         `json:"ref"`
	OwnerID   string         `json:"owner_id"`
	Name      string         `json:"name"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func clientResponse(c *store.Client) *ClientResponse {
	return &ClientResponse{
		ID:        c.ID,
		Ref:       c.Ref,
		OwnerID:   c.OwnerID,
		Name:      c.Name,
		Attrs:     c.Attrs,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ownerFilter returns the owner id to scope a list query by. Admins see
// everything; everyone else sees only their own records.
func ownerFilter(identity *auth.Identity) string {
	if identity.IsAdmin() {
		return ""
	}
	return identity.ID
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	clients, err := s.store.ListClients(r.Context(), ownerFilter(identity))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	resp := make([]*ClientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, clientResponse(c))
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req ClientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		s.sendJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	client := &store.Client{
		ID:      uuid.New().String(),
		Ref:     req.Ref,
		OwnerID: identity.ID,
		Name:    req.Name,
		Attrs:   req.Attrs,
	}
	if err := s.store.CreateClient(r.Context(), client); err != nil {
		s.sendStoreError(w, err)
		return
	}

	created, err := s.store.GetClient(r.Context(), client.ID)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, clientResponse(created))
}

// loadOwnedClient fetches the client and enforces ownership. A record
// owned by someone else reads as absent to non-admins.
func (s *Server) loadOwnedClient(w http.ResponseWriter, r *http.Request) *store.Client {
	identity := auth.MustFromContext(r.Context())

	client, err := s.store.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendStoreError(w, err)
		return nil
	}
	if !identity.IsAdmin() && client.OwnerID != identity.ID {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return nil
	}
	return client
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	client := s.loadOwnedClient(w, r)
	if client == nil {
		return
	}
	s.sendJSON(w, http.StatusOK, clientResponse(client))
}

// handleUpdateClient applies a partial update. Fields omitted from the
// body keep their current values; attrs is replaced wholesale when the key
// is present, so {"attrs": {}} clears it.
func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	client := s.loadOwnedClient(w, r)
	if client == nil {
		return
	}

	var req ClientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != "" {
		client.Name = req.Name
	}
	if req.Ref != "" {
		client.Ref = req.Ref
	}
	if req.Attrs != nil {
		client.Attrs = req.Attrs
	}

	if err := s.store.UpdateClient(r.Context(), client); err != nil {
		s.sendStoreError(w, err)
		return
	}

	updated, err := s.store.GetClient(r.Context(), client.ID)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, clientResponse(updated))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	client := s.loadOwnedClient(w, r)
	if client == nil {
		return
	}

	if err := s.store.DeleteClient(r.Context(), client.ID); err != nil {
		s.sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
