package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/store"
)

type testEnv struct {
	store   *store.SQLiteStore
	handler http.Handler
}

// setupTestServer wires a full server against a temporary SQLite store.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.DiscardHandler)
	cfg := &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "localhost:0"},
		Database: config.DatabaseConfig{Path: dbPath},
		Auth:     config.AuthConfig{SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost},
	}

	sessions := auth.NewManager(st, cfg.Auth.SessionTTL, logger)
	resolver := auth.NewResolver(st, st)
	guard := auth.NewGuard(sessions, resolver, logger)
	svc := auth.NewService(st, sessions, resolver, logger)
	middleware := auth.NewMiddleware(guard, resolver, auth.NewJWTVerifier([]byte("test-secret")))

	srv := New(cfg, st, svc, middleware, logger)
	return &testEnv{store: st, handler: srv.Handler()}
}

// createUser inserts a user with the given capabilities and returns its id.
func (e *testEnv) createUser(t *testing.T, username, password string, caps ...string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	id := uuid.New().String()
	require.NoError(t, e.store.CreateUser(context.Background(), &store.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  username,
	}))
	for _, capability := range caps {
		require.NoError(t, e.store.GrantPermission(context.Background(), id, capability))
	}
	return id
}

// login returns a session token for the user.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

// do sends a JSON request through the handler.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestServer_Login(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.CapabilityBillsRead)

	rec := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.Identity.Username)
	assert.Contains(t, resp.Identity.Capabilities, store.CapabilityBillsRead)

	// Session cookie is set for browser clients
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestServer_Login_BadCredentials(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown user answers identically
	rec = env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "ghost", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Me(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret")
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IdentityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
}

func TestServer_Me_Unauthenticated(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Logout(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret")
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Session no longer validates
	rec = env.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout is idempotent
	rec = env.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_ChangePassword(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret")
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/auth/password", token, ChangePasswordRequest{
		CurrentPassword: "secret",
		NewPassword:     "newsecret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "newsecret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ChangePassword_WrongCurrent(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret")
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/auth/password", token, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newsecret",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_ChangePasswordTooShort(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret")
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/auth/password", token, ChangePasswordRequest{
		CurrentPassword: "secret",
		NewPassword:     "tiny",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Clients_CRUD(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/api/clients", token, ClientRequest{
		Ref:   "C-100",
		Name:  "Acme",
		Attrs: map[string]any{"email": "acme@example.com"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Acme", created.Name)

	rec = env.do(t, http.MethodGet, "/api/clients/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/clients/"+created.ID, token, ClientRequest{Name: "Acme Corp"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Acme Corp", updated.Name)

	rec = env.do(t, http.MethodDelete, "/api/clients/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Clients_OwnerIsolation(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	env.createUser(t, "bob", "secret", store.DefaultCapabilities...)
	aliceToken := env.login(t, "alice", "secret")
	bobToken := env.login(t, "bob", "secret")

	rec := env.do(t, http.MethodPost, "/api/clients", aliceToken, ClientRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Bob can't see Alice's client, by list or by id
	rec = env.do(t, http.MethodGet, "/api/clients", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)

	rec = env.do(t, http.MethodGet, "/api/clients/"+created.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Clients_AdminSeesAll(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	aliceToken := env.login(t, "alice", "secret")
	adminToken := env.login(t, "root", "secret")

	rec := env.do(t, http.MethodPost, "/api/clients", aliceToken, ClientRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestServer_Clients_CapabilityRequired(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.CapabilityClientsRead)
	token := env.login(t, "alice", "secret")

	// Read works, write is forbidden
	rec := env.do(t, http.MethodGet, "/api/clients", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/clients", token, ClientRequest{Name: "Acme"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Bills_CreateAndSearch(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	for i := 1; i <= 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/bills", token, BillRequest{
			Ref:  fmt.Sprintf("INV-%03d", i),
			Date: "2026-08-01",
			Type: "invoice",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/bills?ref=INV-002", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bills []BillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bills))
	require.Len(t, bills, 1)
	assert.Equal(t, "INV-002", bills[0].Ref)
}

func TestServer_Bills_DuplicateRef(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/api/bills", token, BillRequest{Ref: "INV-001"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bills", token, BillRequest{Ref: "INV-001"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_Bills_DeleteRemovesAttachment(t *testing.T) {
	env := setupTestServer(t)
	userID := env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	require.NoError(t, env.store.SaveFile(context.Background(), &store.StoredFile{
		Name:    "inv-001.pdf",
		OwnerID: userID,
		Content: []byte("scan"),
	}))

	rec := env.do(t, http.MethodPost, "/api/bills", token, BillRequest{Ref: "INV-001", FileName: "inv-001.pdf"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var bill BillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bill))

	rec = env.do(t, http.MethodDelete, "/api/bills/"+bill.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	exists, err := env.store.FileExists(context.Background(), "inv-001.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestServer_Bills_UnknownAttachmentRejected(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/api/bills", token, BillRequest{Ref: "INV-001", FileName: "missing.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Files_UploadAndFetch(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "inv-001.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 scan"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	fetch := env.do(t, http.MethodGet, "/api/files/inv-001.pdf", token, nil)
	require.Equal(t, http.StatusOK, fetch.Code)
	assert.Equal(t, "%PDF-1.4 scan", fetch.Body.String())
}

func TestServer_Files_OtherOwnerHidden(t *testing.T) {
	env := setupTestServer(t)
	aliceID := env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	env.createUser(t, "bob", "secret", store.DefaultCapabilities...)
	bobToken := env.login(t, "bob", "secret")

	require.NoError(t, env.store.SaveFile(context.Background(), &store.StoredFile{
		Name:    "private.pdf",
		OwnerID: aliceID,
		Content: []byte("x"),
	}))

	rec := env.do(t, http.MethodGet, "/api/files/private.pdf", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Admin_CreateUser(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	adminToken := env.login(t, "root", "secret")

	rec := env.do(t, http.MethodPost, "/api/admin/users", adminToken, CreateUserRequest{
		Username:    "carol",
		Password:    "carolsecret",
		DisplayName: "Carol",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "carol", created.Username)
	assert.ElementsMatch(t, store.DefaultCapabilities, created.Capabilities)

	// New user can log in
	rec = env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "carol", Password: "carolsecret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Duplicate username conflicts
	rec = env.do(t, http.MethodPost, "/api/admin/users", adminToken, CreateUserRequest{
		Username: "carol",
		Password: "othersecret",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_Admin_CreateUserValidation(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	adminToken := env.login(t, "root", "secret")

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "bob", "longenough"},
		{"non-alphanumeric username", "carol!", "longenough"},
		{"username with spaces", "carol smith", "longenough"},
		{"short password", "carol", "tiny"},
		{"overlong password", "carol", strings.Repeat("x", 37)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/admin/users", adminToken, CreateUserRequest{
				Username: tt.username,
				Password: tt.password,
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_Clients_PartialUpdate(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/api/clients", token, ClientRequest{
		Ref:   "acme-01",
		Name:  "Acme Corp",
		Attrs: map[string]any{"city": "Berlin"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Only the name is sent, ref and attrs stay as they were
	rec = env.do(t, http.MethodPut, "/api/clients/"+created.ID, token, ClientRequest{Name: "Acme GmbH"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Acme GmbH", updated.Name)
	assert.Equal(t, "acme-01", updated.Ref)
	assert.Equal(t, map[string]any{"city": "Berlin"}, updated.Attrs)

	// An explicit empty attrs object clears the attrs
	rec = env.do(t, http.MethodPut, "/api/clients/"+created.ID, token, ClientRequest{Attrs: map[string]any{}})
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, "Acme GmbH", cleared.Name)
	assert.Empty(t, cleared.Attrs)
}

func TestServer_Admin_NonAdminForbidden(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	token := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Admin_Permissions(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	aliceID := env.createUser(t, "alice", "secret")
	adminToken := env.login(t, "root", "secret")
	aliceToken := env.login(t, "alice", "secret")

	// Alice starts with nothing
	rec := env.do(t, http.MethodGet, "/api/clients", aliceToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/users/"+aliceID+"/permissions", adminToken,
		PermissionRequest{Capability: store.CapabilityClientsRead})
	require.Equal(t, http.StatusOK, rec.Code)

	// Grant takes effect on the next request; identities are per-request
	rec = env.do(t, http.MethodGet, "/api/clients", aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/users/"+aliceID+"/permissions", adminToken,
		PermissionRequest{Capability: store.CapabilityClientsRead})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Admin_DeleteUserInvalidatesSession(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	aliceID := env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	adminToken := env.login(t, "root", "secret")
	aliceToken := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodDelete, "/api/admin/users/"+aliceID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Alice's outstanding session is gone with the user
	rec = env.do(t, http.MethodGet, "/auth/me", aliceToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Admin_DeleteUserWithDocuments(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	aliceID := env.createUser(t, "alice", "secret", store.DefaultCapabilities...)
	adminToken := env.login(t, "root", "secret")
	aliceToken := env.login(t, "alice", "secret")

	rec := env.do(t, http.MethodPost, "/api/clients", aliceToken, ClientRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/bills", aliceToken, BillRequest{Ref: "INV-001"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, env.store.SaveFile(context.Background(), &store.StoredFile{
		Name:    "inv-001.pdf",
		OwnerID: aliceID,
		Content: []byte("scan"),
	}))

	// Owned documents must not block account removal
	rec = env.do(t, http.MethodDelete, "/api/admin/users/"+aliceID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	clients, err := env.store.ListClients(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, clients)
	bills, err := env.store.ListBills(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, bills)
	exists, err := env.store.FileExists(context.Background(), "inv-001.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestServer_Admin_ResetPassword(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "root", "secret", store.CapabilityAdmin)
	aliceID := env.createUser(t, "alice", "secret")
	adminToken := env.login(t, "root", "secret")
	aliceToken := env.login(t, "alice", "secret")

	// A password below the minimum length is rejected
	rec := env.do(t, http.MethodPost, "/api/admin/users/"+aliceID+"/password", adminToken,
		ResetPasswordRequest{Password: "tiny"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/users/"+aliceID+"/password", adminToken,
		ResetPasswordRequest{Password: "rotated-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Old sessions are cleared, old password stops working
	rec = env.do(t, http.MethodGet, "/auth/me", aliceToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "rotated-pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Admin_CannotDeleteSelf(t *testing.T) {
	env := setupTestServer(t)
	rootID := env.createUser(t, "root", "secret", store.CapabilityAdmin)
	adminToken := env.login(t, "root", "secret")

	rec := env.do(t, http.MethodDelete, "/api/admin/users/"+rootID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
