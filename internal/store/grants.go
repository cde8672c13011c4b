// ABOUTME: Permission grant store methods for authorization
// ABOUTME: Grants associate users with named capabilities; inserts are idempotent

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Capability names used by the server. Grants are free-form strings so new
// capabilities don't require a schema change; these are the ones billfold
// itself checks.
const (
	CapabilityAdmin        = "admin"
	CapabilityClientsRead  = "clients:read"
	CapabilityClientsWrite = "clients:write"
	CapabilityBillsRead    = "bills:read"
	CapabilityBillsWrite   = "bills:write"
	CapabilityFilesRead    = "files:read"
	CapabilityFilesWrite   = "files:write"
)

// DefaultCapabilities are granted to every newly created non-admin user.
var DefaultCapabilities = []string{
	CapabilityClientsRead,
	CapabilityClientsWrite,
	CapabilityBillsRead,
	CapabilityBillsWrite,
	CapabilityFilesRead,
	CapabilityFilesWrite,
}

// GrantPermission grants a capability to a user. This operation is
// idempotent - granting an existing capability succeeds silently.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GrantPermission(ctx context.Context, userID, capability string) error {
	// The foreign key rejects unknown users, but with a driver error rather
	// than a typed one, so check first.
	if _, err := s.GetUser(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	query := `
		INSERT OR IGNORE INTO grants (user_id, capability, created_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, userID, capability, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("granting permission: %w", err)
	}

	s.logger.Debug("granted permission", "user_id", userID, "capability", capability)
	return nil
}

// RevokePermission removes a capability from a user. This operation is
// idempotent - revoking a non-existent grant succeeds silently.
func (s *SQLiteStore) RevokePermission(ctx context.Context, userID, capability string) error {
	query := `DELETE FROM grants WHERE user_id = ? AND capability = ?`

	_, err := s.db.ExecContext(ctx, query, userID, capability)
	if err != nil {
		return fmt.Errorf("revoking permission: %w", err)
	}

	s.logger.Debug("revoked permission", "user_id", userID, "capability", capability)
	return nil
}

// ListPermissions returns all capabilities granted to a user, sorted.
// Returns an empty slice for users with no grants.
func (s *SQLiteStore) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT capability FROM grants
		WHERE user_id = ?
		ORDER BY capability
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	var capabilities []string
	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, fmt.Errorf("scanning permission: %w", err)
		}
		capabilities = append(capabilities, capability)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating permissions: %w", err)
	}

	// Return empty slice (not nil) if no grants
	if capabilities == nil {
		capabilities = []string{}
	}

	return capabilities, nil
}

// HasPermission checks if a user holds a specific capability. Returns false
// for non-existent users (not an error).
func (s *SQLiteStore) HasPermission(ctx context.Context, userID, capability string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM grants
		WHERE user_id = ? AND capability = ?
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, capability).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking permission: %w", err)
	}

	return count > 0, nil
}
