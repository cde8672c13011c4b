// Package auth provides authentication and authorization for billfold.
//
// # Authentication Methods
//
// The package supports two authentication methods:
//
//   - Sessions: Interactive clients log in with username/password and
//     receive an opaque random token, carried in a cookie or as a bearer
//     token. Sessions live in the store with expiry and revocation, so
//     logout is immediate.
//
//   - Service Tokens: Non-interactive API clients authenticate with JWT
//     tokens signed with HS256 using the configured secret. The "sub"
//     claim names the user the token acts as.
//
// # Identity
//
// Both methods converge on an Identity: a per-request snapshot of the
// user's id, display attributes and resolved capability set. Identities
// are rebuilt from the store on every request and never cached, so
// permission edits take effect immediately.
//
// # Guard
//
// The Guard distinguishes two rejection outcomes:
//
//   - ErrUnauthenticated: no valid session backs the request (prompt for
//     a fresh login)
//   - ErrForbidden: the caller is known but lacks the required capability
//
// The HTTP middleware maps these to 401 and 403 respectively.
//
// # Entry Points
//
// Service bundles the flows the HTTP layer exposes:
//
//	result, err := svc.Login(ctx, username, password)
//	err = svc.Logout(ctx, token)           // idempotent
//	identity, err := svc.CurrentIdentity(ctx, token)
//
// Login returns a single generic ErrInvalidCredentials for unknown users
// and wrong passwords alike.
package auth
