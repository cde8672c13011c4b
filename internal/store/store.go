// ABOUTME: Store interface and data types for billfold persistence
// ABOUTME: Defines User, Session, Grant and document structs plus typed errors

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when creating a user with a taken username
var ErrDuplicateUsername = errors.New("username already exists")

// ErrDuplicateRef is returned when creating a bill with a taken ref
var ErrDuplicateRef = errors.New("bill ref already exists")

// ErrDuplicateFilename is returned when saving a file whose name is taken
var ErrDuplicateFilename = errors.New("filename already exists")

// User represents an account that can log in.
// Profile holds free-form display attributes as a JSON document.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash
	DisplayName  string
	Profile      map[string]any
	CreatedAt    time.Time
}

// Session represents an issued login session. Tokens are opaque random
// strings; a session is valid until it expires or is revoked.
type Session struct {
	Token     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Revoked reports whether the session has been explicitly revoked.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Grant associates a user with a named capability.
type Grant struct {
	UserID     string
	Capability string
	CreatedAt  time.Time
}

// Client represents a client record owned by a user.
// Attrs carries the document body (phone, email, address, ...).
type Client struct {
	ID        string
	Ref       string // external client identifier used by the frontend
	OwnerID   string
	Name      string
	Attrs     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bill represents an invoice record linked to a client.
type Bill struct {
	ID          string
	Ref         string // unique invoice reference
	OwnerID     string
	ClientID    string // empty if not linked
	Date        string
	Type        string
	Description string
	FileName    string // attached file, empty if none
	CreatedAt   time.Time
}

// StoredFile is an uploaded attachment kept in the database.
type StoredFile struct {
	Name      string
	OwnerID   string
	Content   []byte
	CreatedAt time.Time
}

// UserStore defines user and credential persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	UpdateUserProfile(ctx context.Context, id string, displayName string, profile map[string]any) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*User, error)
	CountUsers(ctx context.Context) (int, error)
}

// SessionStore defines session persistence. GetSession returns the record
// whether or not it is expired or revoked - validity policy belongs to the
// session manager, not the store.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	RevokeSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) error
	DeleteSessionsForUser(ctx context.Context, userID string) error
}

// GrantStore defines permission grant persistence. Grants are idempotent.
type GrantStore interface {
	GrantPermission(ctx context.Context, userID, capability string) error
	RevokePermission(ctx context.Context, userID, capability string) error
	ListPermissions(ctx context.Context, userID string) ([]string, error)
	HasPermission(ctx context.Context, userID, capability string) (bool, error)
}

// DocumentStore defines the protected client/bill collections.
type DocumentStore interface {
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context, ownerID string) ([]*Client, error)
	UpdateClient(ctx context.Context, client *Client) error
	DeleteClient(ctx context.Context, id string) error

	CreateBill(ctx context.Context, bill *Bill) error
	GetBill(ctx context.Context, id string) (*Bill, error)
	SearchBillsByRef(ctx context.Context, ref string) ([]*Bill, error)
	ListBills(ctx context.Context, ownerID string) ([]*Bill, error)
	DeleteBill(ctx context.Context, id string) error
}

// FileStore defines attachment persistence.
type FileStore interface {
	SaveFile(ctx context.Context, file *StoredFile) error
	GetFile(ctx context.Context, name string) (*StoredFile, error)
	FileExists(ctx context.Context, name string) (bool, error)
	DeleteFile(ctx context.Context, name string) error
}

// Store combines all persistence interfaces.
type Store interface {
	UserStore
	SessionStore
	GrantStore
	DocumentStore
	FileStore

	// Close releases any resources held by the store
	Close() error
}
