// ABOUTME: Attachment store methods keeping uploaded files as blobs
// ABOUTME: Files are keyed by name, mirroring the frontend's filename references

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveFile stores an uploaded file. Returns ErrDuplicateFilename if a file
// with the same name already exists.
func (s *SQLiteStore) SaveFile(ctx context.Context, file *StoredFile) error {
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO files (name, owner_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		file.Name,
		file.OwnerID,
		file.Content,
		formatTime(file.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateFilename
		}
		return fmt.Errorf("inserting file: %w", err)
	}

	s.logger.Debug("saved file", "name", file.Name, "size", len(file.Content))
	return nil
}

// GetFile retrieves a file by name. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetFile(ctx context.Context, name string) (*StoredFile, error) {
	query := `
		SELECT name, owner_id, content, created_at
		FROM files
		WHERE name = ?
	`

	var file StoredFile
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&file.Name,
		&file.OwnerID,
		&file.Content,
		&createdAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying file: %w", err)
	}

	file.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &file, nil
}

// FileExists checks whether a file with the given name is stored.
func (s *SQLiteStore) FileExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking file: %w", err)
	}
	return count > 0, nil
}

// DeleteFile removes a stored file. Deleting a non-existent file succeeds
// silently - bill deletion uses this to drop attachments best-effort.
func (s *SQLiteStore) DeleteFile(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted file", "name", name)
	}
	return nil
}
