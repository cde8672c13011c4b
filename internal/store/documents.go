// ABOUTME: Client and bill document collections protected by the auth core
// ABOUTME: Records carry a JSON attrs document; bill refs are unique

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateClient creates a new client record.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *Client) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = client.CreatedAt
	}

	attrsJSON, err := marshalAttrs(client.Attrs)
	if err != nil {
		return fmt.Errorf("encoding client attrs: %w", err)
	}

	query := `
		INSERT INTO clients (id, ref, owner_id, name, attrs_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		client.ID,
		client.Ref,
		client.OwnerID,
		client.Name,
		attrsJSON,
		formatTime(client.CreatedAt),
		formatTime(client.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}

	s.logger.Debug("created client", "id", client.ID, "ref", client.Ref)
	return nil
}

// GetClient retrieves a client by ID. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*Client, error) {
	query := `
		SELECT id, ref, owner_id, name, attrs_json, created_at, updated_at
		FROM clients
		WHERE id = ?
	`

	var client Client
	var attrsJSON sql.NullString
	var createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.Ref,
		&client.OwnerID,
		&client.Name,
		&attrsJSON,
		&createdAtStr,
		&updatedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying client: %w", err)
	}

	client.Attrs, err = unmarshalAttrs(attrsJSON)
	if err != nil {
		return nil, fmt.Errorf("decoding client attrs: %w", err)
	}
	client.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	client.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &client, nil
}

// ListClients returns client records ordered by name. If ownerID is
// non-empty, only that user's records are returned - the per-user
// restriction for non-admin callers.
func (s *SQLiteStore) ListClients(ctx context.Context, ownerID string) ([]*Client, error) {
	query := `
		SELECT id, ref, owner_id, name, attrs_json, created_at, updated_at
		FROM clients
	`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		var client Client
		var attrsJSON sql.NullString
		var createdAtStr, updatedAtStr string

		if err := rows.Scan(&client.ID, &client.Ref, &client.OwnerID, &client.Name, &attrsJSON, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}

		client.Attrs, err = unmarshalAttrs(attrsJSON)
		if err != nil {
			return nil, fmt.Errorf("decoding client attrs: %w", err)
		}
		client.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		client.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		clients = append(clients, &client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clients: %w", err)
	}
	return clients, nil
}

// UpdateClient replaces a client's ref, name and attrs.
// Returns ErrNotFound if the client doesn't exist.
func (s *SQLiteStore) UpdateClient(ctx context.Context, client *Client) error {
	attrsJSON, err := marshalAttrs(client.Attrs)
	if err != nil {
		return fmt.Errorf("encoding client attrs: %w", err)
	}

	query := `
		UPDATE clients
		SET ref = ?, name = ?, attrs_json = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		client.Ref,
		client.Name,
		attrsJSON,
		formatTime(time.Now()),
		client.ID,
	)
	if err != nil {
		return fmt.Errorf("updating client: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated client", "id", client.ID)
	return nil
}

// DeleteClient removes a client record.
// Returns ErrNotFound if the client doesn't exist.
func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting client: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted client", "id", id)
	return nil
}

// CreateBill creates a new bill. Returns ErrDuplicateRef if a bill with the
// same ref already exists.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *Bill) error {
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO bills (id, ref, owner_id, client_id, date, type, description, file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		bill.ID,
		bill.Ref,
		bill.OwnerID,
		nullString(bill.ClientID),
		bill.Date,
		bill.Type,
		bill.Description,
		nullString(bill.FileName),
		formatTime(bill.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateRef
		}
		return fmt.Errorf("inserting bill: %w", err)
	}

	s.logger.Debug("created bill", "id", bill.ID, "ref", bill.Ref)
	return nil
}

// GetBill retrieves a bill by ID. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetBill(ctx context.Context, id string) (*Bill, error) {
	query := `
		SELECT id, ref, owner_id, client_id, date, type, description, file_name, created_at
		FROM bills
		WHERE id = ?
	`

	bill, err := scanBill(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// scanner abstracts sql.Row and sql.Rows for bill scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (*Bill, error) {
	var bill Bill
	var clientID, fileName sql.NullString
	var createdAtStr string

	err := row.Scan(
		&bill.ID,
		&bill.Ref,
		&bill.OwnerID,
		&clientID,
		&bill.Date,
		&bill.Type,
		&bill.Description,
		&fileName,
		&createdAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning bill: %w", err)
	}

	bill.ClientID = clientID.String
	bill.FileName = fileName.String
	bill.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &bill, nil
}

// SearchBillsByRef returns bills whose ref contains the given fragment.
func (s *SQLiteStore) SearchBillsByRef(ctx context.Context, ref string) ([]*Bill, error) {
	query := `
		SELECT id, ref, owner_id, client_id, date, type, description, file_name, created_at
		FROM bills
		WHERE ref LIKE '%' || ? || '%'
		ORDER BY ref ASC
	`
	return s.queryBills(ctx, query, ref)
}

// ListBills returns bills ordered by ref. If ownerID is non-empty, only
// that user's bills are returned.
func (s *SQLiteStore) ListBills(ctx context.Context, ownerID string) ([]*Bill, error) {
	query := `
		SELECT id, ref, owner_id, client_id, date, type, description, file_name, created_at
		FROM bills
	`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY ref ASC`

	return s.queryBills(ctx, query, args...)
}

func (s *SQLiteStore) queryBills(ctx context.Context, query string, args ...any) ([]*Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	var bills []*Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bills: %w", err)
	}
	return bills, nil
}

// DeleteBill removes a bill record.
// Returns ErrNotFound if the bill doesn't exist.
func (s *SQLiteStore) DeleteBill(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting bill: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted bill", "id", id)
	return nil
}
