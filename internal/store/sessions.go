// ABOUTME: Session store methods - token-keyed rows with expiry and revocation
// ABOUTME: Validity policy (expired/revoked) is decided by the auth session manager

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession inserts a new session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (token, user_id, issued_at, expires_at, revoked_at)
		VALUES (?, ?, ?, ?, NULL)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.Token,
		session.UserID,
		formatTime(session.IssuedAt),
		formatTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "user_id", session.UserID, "expires_at", session.ExpiresAt)
	return nil
}

// GetSession retrieves a session by its token. The lookup is keyed on the
// primary key so unknown and expired tokens cost the same single probe.
// Returns ErrNotFound if no row exists; expired or revoked sessions are
// still returned.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT token, user_id, issued_at, expires_at, revoked_at
		FROM sessions
		WHERE token = ?
	`

	var session Session
	var issuedAtStr, expiresAtStr string
	var revokedAtStr sql.NullString

	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&session.Token,
		&session.UserID,
		&issuedAtStr,
		&expiresAtStr,
		&revokedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.IssuedAt, err = time.Parse(time.RFC3339, issuedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing issued_at: %w", err)
	}

	session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	if revokedAtStr.Valid {
		revokedAt, err := time.Parse(time.RFC3339, revokedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing revoked_at: %w", err)
		}
		session.RevokedAt = &revokedAt
	}

	return &session, nil
}

// RevokeSession marks a session revoked. Revocation is permanent and
// idempotent - revoking an unknown or already-revoked token succeeds
// silently, since the caller's intent (token must not validate) holds
// either way.
func (s *SQLiteStore) RevokeSession(ctx context.Context, token string) error {
	now := formatTime(time.Now())

	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL
	`, now, token)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry to bound
// storage growth. Revoked rows past expiry are removed too.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) error {
	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired sessions", "count", rowsAffected)
	}
	return nil
}

// DeleteSessionsForUser removes every session belonging to a user.
func (s *SQLiteStore) DeleteSessionsForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}
