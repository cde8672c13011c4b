// ABOUTME: Session manager - issues, validates and revokes opaque session tokens
// ABOUTME: Tokens come from crypto/rand; expiry is checked lazily at validation

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/billfold/billfold/internal/store"
)

// ErrInvalidSession is returned for unknown, expired and revoked tokens
// alike - callers cannot tell the cases apart, so a token can't be probed
// for whether it once existed.
var ErrInvalidSession = errors.New("invalid session")

// tokenBytes is the entropy of a session token. 32 bytes is well past the
// 128-bit guessing floor.
const tokenBytes = 32

// Manager issues and validates sessions against the session store.
type Manager struct {
	sessions store.SessionStore
	ttl      time.Duration
	logger   *slog.Logger
}

// NewManager creates a session manager issuing sessions with the given TTL.
func NewManager(sessions store.SessionStore, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: sessions,
		ttl:      ttl,
		logger:   logger.With("component", "sessions"),
	}
}

// Issue creates a session for the user and returns its token.
func (m *Manager) Issue(ctx context.Context, userID string) (*store.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	now := time.Now().UTC()
	session := &store.Session{
		Token:     token,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	m.logger.Debug("issued session", "user_id", userID, "expires_at", session.ExpiresAt)
	return session, nil
}

// Validate resolves a token to its owning user ID. Fails with
// ErrInvalidSession if the token is unknown, revoked or past its expiry.
// A session issued with zero TTL is expired immediately.
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}

	session, err := m.sessions.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidSession
	}
	if err != nil {
		return "", err
	}

	if session.Revoked() {
		return "", ErrInvalidSession
	}
	if !time.Now().Before(session.ExpiresAt) {
		return "", ErrInvalidSession
	}

	return session.UserID, nil
}

// Revoke terminates a session. Idempotent: revoking an unknown or
// already-invalid token is not an error from the caller's perspective.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.sessions.RevokeSession(ctx, token)
}

// RunSweeper deletes expired sessions every interval until ctx is done.
// The sweep only bounds storage growth; validation never depends on it.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.sessions.DeleteExpiredSessions(ctx); err != nil {
				m.logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}

// generateToken returns a hex-encoded random token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
