// ABOUTME: HTTP handlers for the bill collection
// ABOUTME: Enforces unique refs, client links and attachment cleanup on delete

package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/store"
)

// BillRequest is the body of POST /api/bills.
type BillRequest struct {
	Ref         string `json:"ref"`
	ClientID    string `json:"client_id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	FileName    string `json:"file_name"`
}

// BillResponse is the wire form of a bill record.
type BillResponse struct {
	ID          string    `json:"id"`
	Ref         string    `json:"ref"`
	OwnerID     string    `json:"owner_id"`
	ClientID    string    `json:"client_id,omitempty"`
	Date        string    `json:"date,omitempty"`
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func billResponse(b *store.Bill) *BillResponse {
	return &BillResponse{
		ID:          b.ID,
		Ref:         b.Ref,
		OwnerID:     b.OwnerID,
		ClientID:    b.ClientID,
		Date:        b.Date,
		Type:        b.Type,
		Description: b.Description,
		FileName:    b.FileName,
		CreatedAt:   b.CreatedAt,
	}
}

// handleListBills lists bills, scoped to the caller unless they are an
// admin. A ref query parameter switches to a prefix search.
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var bills []*store.Bill
	var err error
	if ref := r.URL.Query().Get("ref"); ref != "" {
		bills, err = s.store.SearchBillsByRef(r.Context(), ref)
		if err == nil && !identity.IsAdmin() {
			owned := bills[:0]
			for _, b := range bills {
				if b.OwnerID == identity.ID {
					owned = append(owned, b)
				}
			}
			bills = owned
		}
	} else {
		bills, err = s.store.ListBills(r.Context(), ownerFilter(identity))
	}
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	resp := make([]*BillResponse, 0, len(bills))
	for _, b := range bills {
		resp = append(resp, billResponse(b))
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req BillRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Ref == "" {
		s.sendJSONError(w, http.StatusBadRequest, "ref is required")
		return
	}

	// A linked client must exist and be visible to the caller
	if req.ClientID != "" {
		client, err := s.store.GetClient(r.Context(), req.ClientID)
		if err != nil {
			s.sendStoreError(w, err)
			return
		}
		if !identity.IsAdmin() && client.OwnerID != identity.ID {
			s.sendJSONError(w, http.StatusNotFound, "not found")
			return
		}
	}

	// A named attachment must already be uploaded
	if req.FileName != "" {
		exists, err := s.store.FileExists(r.Context(), req.FileName)
		if err != nil {
			s.sendStoreError(w, err)
			return
		}
		if !exists {
			s.sendJSONError(w, http.StatusBadRequest, "attachment not found")
			return
		}
	}

	bill := &store.Bill{
		ID:          uuid.New().String(),
		Ref:         req.Ref,
		OwnerID:     identity.ID,
		ClientID:    req.ClientID,
		Date:        req.Date,
		Type:        req.Type,
		Description: req.Description,
		FileName:    req.FileName,
	}
	if err := s.store.CreateBill(r.Context(), bill); err != nil {
		s.sendStoreError(w, err)
		return
	}

	created, err := s.store.GetBill(r.Context(), bill.ID)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, billResponse(created))
}

// loadOwnedBill fetches the bill and enforces ownership, mirroring
// loadOwnedClient.
func (s *Server) loadOwnedBill(w http.ResponseWriter, r *http.Request) *store.Bill {
	identity := auth.MustFromContext(r.Context())

	bill, err := s.store.GetBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendStoreError(w, err)
		return nil
	}
	if !identity.IsAdmin() && bill.OwnerID != identity.ID {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return nil
	}
	return bill
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill := s.loadOwnedBill(w, r)
	if bill == nil {
		return
	}
	s.sendJSON(w, http.StatusOK, billResponse(bill))
}

// handleDeleteBill removes the bill and, best effort, its attachment.
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	bill := s.loadOwnedBill(w, r)
	if bill == nil {
		return
	}

	if err := s.store.DeleteBill(r.Context(), bill.ID); err != nil {
		s.sendStoreError(w, err)
		return
	}
	if bill.FileName != "" {
		if err := s.store.DeleteFile(r.Context(), bill.FileName); err != nil {
			s.logger.Warn("failed to delete bill attachment", "file", bill.FileName, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
