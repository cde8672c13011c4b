// ABOUTME: HTTP handlers for file attachments stored as blobs
// ABOUTME: Multipart upload plus download by name with ownership checks

package server

import (
	"io"
	"net/http"

	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/store"
)

// maxUploadBytes caps attachment size. The original system stored scanned
// invoices, so a generous but bounded limit.
const maxUploadBytes = 16 << 20

// FileResponse is the wire form of an upload acknowledgement.
type FileResponse struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.sendJSONError(w, http.StatusBadRequest, "filename is required")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	stored := &store.StoredFile{
		Name:    header.Filename,
		OwnerID: identity.ID,
		Content: content,
	}
	if err := s.store.SaveFile(r.Context(), stored); err != nil {
		s.sendStoreError(w, err)
		return
	}

	s.sendJSON(w, http.StatusCreated, FileResponse{Name: stored.Name, Size: len(content)})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	file, err := s.store.GetFile(r.Context(), r.PathValue("name"))
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	if !identity.IsAdmin() && file.OwnerID != identity.ID {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
