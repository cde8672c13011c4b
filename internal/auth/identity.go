// ABOUTME: Identity snapshot of an authenticated user with resolved capabilities
// ABOUTME: Built fresh per request from the store, never cached across requests

package auth

import (
	"context"

	"github.com/billfold/billfold/internal/store"
)

// Identity is a read snapshot of a user's id, display attributes and
// resolved capability set. It is immutable once constructed and discarded
// when the request completes, so permission edits take effect on the next
// request without any cache invalidation.
type Identity struct {
	ID           string
	Username     string
	DisplayName  string
	Profile      map[string]any
	Capabilities []string
}

// HasCapability reports whether the identity holds the named capability.
// The admin capability acts as a wildcard.
func (id *Identity) HasCapability(name string) bool {
	for _, c := range id.Capabilities {
		if c == name || c == store.CapabilityAdmin {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity holds the admin capability.
func (id *Identity) IsAdmin() bool {
	return id.HasCapability(store.CapabilityAdmin)
}

// Resolver builds Identity snapshots from the credential store.
type Resolver struct {
	users  store.UserStore
	grants store.GrantStore
}

// NewResolver creates an identity resolver.
func NewResolver(users store.UserStore, grants store.GrantStore) *Resolver {
	return &Resolver{users: users, grants: grants}
}

// Resolve loads the user and its permission set.
// Returns store.ErrNotFound if the user no longer exists.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Identity, error) {
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	capabilities, err := r.grants.ListPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		ID:           user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Profile:      user.Profile,
		Capabilities: capabilities,
	}, nil
}
