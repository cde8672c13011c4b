// Package store provides persistent storage for billfold using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with specialized
// interfaces:
//
//   - UserStore: Accounts and credential hashes
//   - SessionStore: Login sessions (expiry and revocation)
//   - GrantStore: Capability grants for authorization
//   - DocumentStore: Client and bill collections
//   - FileStore: Uploaded attachments
//
// SQLiteStore implements all interfaces in a single struct, allowing easy
// composition while maintaining clear interface boundaries. The auth
// packages depend only on the narrow interfaces they need.
//
// # Data Models
//
//   - User: Account with unique username, bcrypt hash, JSON profile document
//   - Session: Opaque token with issued/expires timestamps and revocation
//   - Grant: (user, capability) pair; grants are idempotent
//   - Client: Client record owned by a user, attrs as a JSON document
//   - Bill: Invoice with unique ref, optional client link and attachment
//   - StoredFile: Uploaded file content kept as a blob
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Uniqueness (usernames, bill refs, filenames) is enforced by unique
// indexes rather than application-level locking, so concurrent requests
// never need cross-request mutual exclusion.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested record does not exist
//   - ErrDuplicateUsername, ErrDuplicateRef, ErrDuplicateFilename:
//     unique index violations surfaced as typed conflicts
//
// Any other error wraps the driver error and indicates the store itself is
// unavailable; callers translate those to a 5xx response and may retry.
// All methods accept context.Context for cancellation support.
package store
