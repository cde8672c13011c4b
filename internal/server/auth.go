// ABOUTME: HTTP handlers for login, logout, current identity and password change
// ABOUTME: Sets and clears the session cookie so browser clients work unchanged

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/billfold/billfold/internal/auth"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body of POST /auth/login. The token is also
// set as a cookie so browser clients need not handle it themselves.
type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Identity  *IdentityResponse `json:"identity"`
}

// IdentityResponse is the wire form of an authenticated identity.
type IdentityResponse struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	DisplayName  string         `json:"display_name"`
	Capabilities []string       `json:"capabilities"`
	Profile      map[string]any `json:"profile,omitempty"`
}

// ChangePasswordRequest is the body of POST /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func identityResponse(id *auth.Identity) *IdentityResponse {
	return &IdentityResponse{
		ID:           id.ID,
		Username:     id.Username,
		DisplayName:  id.DisplayName,
		Capabilities: id.Capabilities,
		Profile:      id.Profile,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		s.sendJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.sendStoreError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.sendJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Identity:  identityResponse(result.Identity),
	})
}

// handleLogout revokes the presented session and clears the cookie. It
// answers 204 whether or not a valid session was presented.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		_ = s.auth.Logout(r.Context(), token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())
	s.sendJSON(w, http.StatusOK, identityResponse(identity))
}

// handleChangePassword lets an authenticated user rotate their own
// password. The current password is required so a hijacked session cannot
// lock the owner out quietly.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validPassword(req.NewPassword) {
		s.sendJSONError(w, http.StatusBadRequest, "new_password must be 8-36 characters")
		return
	}

	err := s.auth.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword, s.cfg.Auth.BcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.sendJSONError(w, http.StatusForbidden, "current password is incorrect")
			return
		}
		s.sendStoreError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
