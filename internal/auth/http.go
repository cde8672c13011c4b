// ABOUTME: HTTP middleware gating protected endpoints on sessions or service tokens
// ABOUTME: Extracts the token from cookie or Authorization header and attaches the Identity

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/billfold/billfold/internal/store"
)

// SessionCookieName is the cookie carrying the session token for browser clients.
const SessionCookieName = "billfold_session"

// Middleware authenticates requests and enforces capabilities. It accepts
// either an opaque session token (cookie or bearer) or an HS256 service
// token (bearer); both resolve to the same Identity.
type Middleware struct {
	guard    *Guard
	resolver *Resolver
	verifier TokenVerifier
}

// NewMiddleware creates the auth middleware. verifier may be nil to
// disable service tokens.
func NewMiddleware(guard *Guard, resolver *Resolver, verifier TokenVerifier) *Middleware {
	return &Middleware{guard: guard, resolver: resolver, verifier: verifier}
}

// TokenFromRequest extracts the credential from the Authorization header or
// the session cookie. Returns an empty string if neither is present.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token := strings.TrimPrefix(header, "Bearer "); token != header && token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth wraps a handler so only authenticated callers reach it.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.Require("", next)
}

// RequireCapability wraps a handler so only callers holding the capability
// reach it. Invalid sessions answer 401, missing capability answers 403 -
// the client uses the split to choose between re-login and "not allowed".
func (m *Middleware) RequireCapability(capability string, next http.Handler) http.Handler {
	return m.Require(capability, next)
}

// Require is the common implementation behind RequireAuth/RequireCapability.
func (m *Middleware) Require(capability string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}

		identity, err := m.authenticate(r, token, capability)
		switch {
		case errors.Is(err, ErrUnauthenticated):
			unauthorized(w)
			return
		case errors.Is(err, ErrForbidden):
			jsonError(w, http.StatusForbidden, "forbidden")
			return
		case err != nil:
			jsonError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// authenticate resolves the token to an Identity and checks the capability.
// Service tokens are JWTs (dotted); everything else is a session token.
func (m *Middleware) authenticate(r *http.Request, token, capability string) (*Identity, error) {
	if m.verifier != nil && strings.Count(token, ".") == 2 {
		userID, err := m.verifier.Verify(token)
		if err != nil {
			return nil, ErrUnauthenticated
		}
		identity, err := m.resolver.Resolve(r.Context(), userID)
		if err != nil {
			// Unknown sub or store failure - a stale token maps to 401,
			// anything else propagates.
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUnauthenticated
			}
			return nil, err
		}
		if capability != "" && !identity.HasCapability(capability) {
			return nil, ErrForbidden
		}
		return identity, nil
	}

	return m.guard.Authorize(r.Context(), token, capability)
}

func unauthorized(w http.ResponseWriter) {
	jsonError(w, http.StatusUnauthorized, "unauthenticated")
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
