// ABOUTME: Auth entry points - login, logout and current-identity resolution
// ABOUTME: Login failures collapse to one generic error so accounts can't be enumerated

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/billfold/billfold/internal/store"
)

// ErrInvalidCredentials is the single outcome for unknown usernames and
// wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash keeps bcrypt timing flat when the username doesn't exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// LoginResult carries the issued session back to the transport layer.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  *Identity
}

// Service orchestrates the store, session manager and resolver for the
// auth endpoints.
type Service struct {
	users    store.UserStore
	sessions *Manager
	resolver *Resolver
	logger   *slog.Logger
}

// NewService creates the auth entry-point service.
func NewService(users store.UserStore, sessions *Manager, resolver *Resolver, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		resolver: resolver,
		logger:   logger.With("component", "auth"),
	}
}

// Login verifies the credentials and issues a session.
// Returns ErrInvalidCredentials for both unknown users and wrong passwords;
// a dummy bcrypt comparison keeps the two paths' timing equivalent.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("password mismatch", "username", username)
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	identity, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login successful", "username", username, "user_id", user.ID)
	return &LoginResult{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Identity:  identity,
	}, nil
}

// Logout revokes the session. Always succeeds: revoking an already-invalid
// token is not an error from the caller's perspective.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		// Log and swallow - logout is idempotent at this boundary.
		s.logger.Warn("logout revoke failed", "error", err)
	}
	return nil
}

// CurrentIdentity resolves the session to an identity snapshot.
// Returns ErrUnauthenticated if the session is invalid or the user is gone.
func (s *Service) CurrentIdentity(ctx context.Context, token string) (*Identity, error) {
	userID, err := s.sessions.Validate(ctx, token)
	if errors.Is(err, ErrInvalidSession) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	identity, err := s.resolver.Resolve(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		_ = s.sessions.Revoke(ctx, token)
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	return identity, nil
}

// ChangePassword verifies the current secret and stores a new hash.
// Returns ErrInvalidCredentials if the current secret is wrong.
func (s *Service) ChangePassword(ctx context.Context, userID, current, updated string, cost int) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(updated), cost)
	if err != nil {
		return err
	}

	return s.users.UpdateUserPassword(ctx, userID, string(hash))
}
