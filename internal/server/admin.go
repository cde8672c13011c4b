// ABOUTME: Admin HTTP handlers for user and permission management
// ABOUTME: Gated on the admin capability by the auth middleware

package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/store"
)

// CreateUserRequest is the body of POST /api/admin/users. Admin users get
// the admin capability; others get the default capability set.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
}

// UserResponse is the wire form of a user record. Password hashes never
// leave the store layer.
type UserResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Capabilities []string  `json:"capabilities"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResetPasswordRequest is the body of POST /api/admin/users/{id}/password.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// PermissionRequest is the body of the grant and revoke endpoints.
type PermissionRequest struct {
	Capability string `json:"capability"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	resp := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		caps, err := s.store.ListPermissions(r.Context(), u.ID)
		if err != nil {
			s.sendStoreError(w, err)
			return
		}
		resp = append(resp, &UserResponse{
			ID:           u.ID,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			Capabilities: caps,
			CreatedAt:    u.CreatedAt,
		})
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validUsername(req.Username) {
		s.sendJSONError(w, http.StatusBadRequest, "username must be 4-36 alphanumeric characters")
		return
	}
	if !validPassword(req.Password) {
		s.sendJSONError(w, http.StatusBadRequest, "password must be 8-36 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.Auth.BcryptCost)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "password cannot be hashed")
		return
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.sendStoreError(w, err)
		return
	}

	caps := store.DefaultCapabilities
	if req.Admin {
		caps = []string{store.CapabilityAdmin}
	}
	for _, capability := range caps {
		if err := s.store.GrantPermission(r.Context(), user.ID, capability); err != nil {
			s.sendStoreError(w, err)
			return
		}
	}

	granted, err := s.store.ListPermissions(r.Context(), user.ID)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.logger.Info("user created", "username", user.Username, "admin", req.Admin)
	s.sendJSON(w, http.StatusCreated, &UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Capabilities: granted,
		CreatedAt:    user.CreatedAt,
	})
}

// handleDeleteUser removes the user. Sessions, grants and owned documents
// cascade in the store; an admin cannot delete their own account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())
	id := r.PathValue("id")

	if id == identity.ID {
		s.sendJSONError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.logger.Info("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validPassword(req.Password) {
		s.sendJSONError(w, http.StatusBadRequest, "password must be 8-36 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.Auth.BcryptCost)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "password cannot be hashed")
		return
	}
	if err := s.store.UpdateUserPassword(r.Context(), id, string(hash)); err != nil {
		s.sendStoreError(w, err)
		return
	}

	// Force re-login everywhere after an admin reset
	if err := s.store.DeleteSessionsForUser(r.Context(), id); err != nil {
		s.logger.Warn("failed to clear sessions after password reset", "user_id", id, "error", err)
	}

	s.logger.Info("password reset", "user_id", id)
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req PermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Capability == "" {
		s.sendJSONError(w, http.StatusBadRequest, "capability is required")
		return
	}

	if err := s.store.GrantPermission(r.Context(), id, req.Capability); err != nil {
		s.sendStoreError(w, err)
		return
	}

	caps, err := s.store.ListPermissions(r.Context(), id)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.logger.Info("permission granted", "user_id", id, "capability", req.Capability)
	s.sendJSON(w, http.StatusOK, map[string]any{"capabilities": caps})
}

func (s *Server) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req PermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Capability == "" {
		s.sendJSONError(w, http.StatusBadRequest, "capability is required")
		return
	}

	if err := s.store.RevokePermission(r.Context(), id, req.Capability); err != nil {
		s.sendStoreError(w, err)
		return
	}

	caps, err := s.store.ListPermissions(r.Context(), id)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.logger.Info("permission revoked", "user_id", id, "capability", req.Capability)
	s.sendJSON(w, http.StatusOK, map[string]any{"capabilities": caps})
}
