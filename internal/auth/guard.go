// ABOUTME: Authorization guard resolving sessions to identities and checking capabilities
// ABOUTME: Distinguishes Unauthenticated (bad session) from Forbidden (known caller, no right)

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/billfold/billfold/internal/store"
)

// ErrUnauthenticated is returned when no valid session backs the request.
// Callers should prompt for a fresh login.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when the session is valid but the identity lacks
// the required capability. Callers should report "not allowed", not re-login.
var ErrForbidden = errors.New("forbidden")

// Guard authorizes protected operations.
type Guard struct {
	sessions *Manager
	resolver *Resolver
	logger   *slog.Logger
}

// NewGuard creates an authorization guard.
func NewGuard(sessions *Manager, resolver *Resolver, logger *slog.Logger) *Guard {
	return &Guard{
		sessions: sessions,
		resolver: resolver,
		logger:   logger.With("component", "guard"),
	}
}

// Authorize validates the session token, resolves the caller's identity and
// checks the required capability. An empty capability means any
// authenticated caller passes.
//
// Store failures propagate as-is so the transport can answer 5xx rather
// than mislabel an outage as a rejected login.
func (g *Guard) Authorize(ctx context.Context, token, capability string) (*Identity, error) {
	userID, err := g.sessions.Validate(ctx, token)
	if errors.Is(err, ErrInvalidSession) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	identity, err := g.resolver.Resolve(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// The user was deleted after the session was issued. Revoke the
		// dangling session so it stops reaching this path.
		if rerr := g.sessions.Revoke(ctx, token); rerr != nil {
			g.logger.Warn("failed to revoke dangling session", "error", rerr)
		}
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	if capability != "" && !identity.HasCapability(capability) {
		g.logger.Debug("capability check failed", "user_id", identity.ID, "capability", capability)
		return nil, ErrForbidden
	}

	return identity, nil
}
