package auth

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/billfold/billfold/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// setupAuthStore creates a temporary SQLite store for auth tests.
func setupAuthStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
	})

	return st
}

// createAuthUser inserts a user whose password is the given plaintext.
func createAuthUser(t *testing.T, st *store.SQLiteStore, id, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), &store.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  username,
	}))
}

func TestManager_IssueAndValidate(t *testing.T) {
	st := setupAuthStore(t)
	ctx := context.Background()
	createAuthUser(t, st, "user-1", "alice", "secret")

	mgr := NewManager(st, time.Hour, discardLogger())

	session, err := mgr.Issue(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, session.Token, 64) // 32 bytes hex-encoded

	userID, err := mgr.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestManager_Validate_UnknownToken(t *testing.T) {
	st := setupAuthStore(t)
	mgr := NewManager(st, time.Hour, discardLogger())

	_, err := mgr.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_Validate_EmptyToken(t *testing.T) {
	st := setupAuthStore(t)
	mgr := NewManager(st, time.Hour, discardLogger())

	_, err := mgr.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_Validate_ZeroTTLExpiresImmediately(t *testing.T) {
	st := setupAuthStore(t)
	ctx := context.Background()
	createAuthUser(t, st, "user-1", "alice", "secret")

	mgr := NewManager(st, 0, discardLogger())

	session, err := mgr.Issue(ctx, "user-1")
	require.NoError(t, err)

	_, err = mgr.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_Revoke(t *testing.T) {
	st := setupAuthStore(t)
	ctx := context.Background()
	createAuthUser(t, st, "user-1", "alice", "secret")

	mgr := NewManager(st, time.Hour, discardLogger())

	session, err := mgr.Issue(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, mgr.Revoke(ctx, session.Token))

	_, err = mgr.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	// Revocation is permanent and idempotent
	require.NoError(t, mgr.Revoke(ctx, session.Token))
	_, err = mgr.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestManager_Revoke_EmptyToken(t *testing.T) {
	st := setupAuthStore(t)
	mgr := NewManager(st, time.Hour, discardLogger())

	assert.NoError(t, mgr.Revoke(context.Background(), ""))
}

func TestManager_TokensAreUnique(t *testing.T) {
	st := setupAuthStore(t)
	ctx := context.Background()
	createAuthUser(t, st, "user-1", "alice", "secret")

	mgr := NewManager(st, time.Hour, discardLogger())

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		session, err := mgr.Issue(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, seen[session.Token])
		seen[session.Token] = true
	}
}
