// ABOUTME: HTTP server wiring routes, middleware and graceful shutdown
// ABOUTME: Exposes the auth endpoints plus the protected client/bill/file API

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/store"
)

// Server serves the billfold HTTP API.
type Server struct {
	cfg        *config.Config
	store      store.Store
	auth       *auth.Service
	middleware *auth.Middleware
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. middleware gates the
// protected endpoints; the auth endpoints below /auth are open.
func New(cfg *config.Config, st store.Store, svc *auth.Service, middleware *auth.Middleware, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		auth:       svc,
		middleware: middleware,
		logger:     logger.With("component", "server"),
	}

	mux := http.NewServeMux()

	// Health endpoint - no auth required
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth endpoints
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.Handle("GET /auth/me", middleware.RequireAuth(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST /auth/password", middleware.RequireAuth(http.HandlerFunc(s.handleChangePassword)))

	// Client collection
	mux.Handle("GET /api/clients", middleware.RequireCapability(store.CapabilityClientsRead, http.HandlerFunc(s.handleListClients)))
	mux.Handle("POST /api/clients", middleware.RequireCapability(store.CapabilityClientsWrite, http.HandlerFunc(s.handleCreateClient)))
	mux.Handle("GET /api/clients/{id}", middleware.RequireCapability(store.CapabilityClientsRead, http.HandlerFunc(s.handleGetClient)))
	mux.Handle("PUT /api/clients/{id}", middleware.RequireCapability(store.CapabilityClientsWrite, http.HandlerFunc(s.handleUpdateClient)))
	mux.Handle("DELETE /api/clients/{id}", middleware.RequireCapability(store.CapabilityClientsWrite, http.HandlerFunc(s.handleDeleteClient)))

	// Bill collection
	mux.Handle("GET /api/bills", middleware.RequireCapability(store.CapabilityBillsRead, http.HandlerFunc(s.handleListBills)))
	mux.Handle("POST /api/bills", middleware.RequireCapability(store.CapabilityBillsWrite, http.HandlerFunc(s.handleCreateBill)))
	mux.Handle("GET /api/bills/{id}", middleware.RequireCapability(store.CapabilityBillsRead, http.HandlerFunc(s.handleGetBill)))
	mux.Handle("DELETE /api/bills/{id}", middleware.RequireCapability(store.CapabilityBillsWrite, http.HandlerFunc(s.handleDeleteBill)))

	// File attachments
	mux.Handle("POST /api/files", middleware.RequireCapability(store.CapabilityFilesWrite, http.HandlerFunc(s.handleUploadFile)))
	mux.Handle("GET /api/files/{name}", middleware.RequireCapability(store.CapabilityFilesRead, http.HandlerFunc(s.handleGetFile)))

	// Admin surface
	mux.Handle("GET /api/admin/users", middleware.RequireCapability(store.CapabilityAdmin, http.HandlerFunc(s.handleListUsers)))
	mux.Handle("POST /api/admin/users", middleware.RequireCapability(store.CapabilityAdmin, http.HandlerFunc(s.handleCreateUser)))
	mux.Handle("DELETE /api/admin/users/{id}", middleware.RequireCapability(store.CapabilityAdmin, http.HandlerFunc(s.handleDeleteUser)))
	mux.Handle("POST /api/admin/users/{id}/password", middleware.RequireCapability(store.CapabilityAdmin, http.HandlerFunc(s.handleResetPassword)))
	mux.Handle("POST /api/admin/users/{id}/permissions", middleware.RequireCapability(store.CapabilityAdmin, http.HandlerFunc(s.handleGrantPermission)))
	mux.Handle("DELETE /api/admin/users/{id}/permissions", middleware.RequireCapability(store.CapabilityAdmin, http.HandlerFunc(s.handleRevokePermission)))

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the configured HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("shutdown complete")
	return nil
}

// handleHealth reports liveness and checks the store can answer a query.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.CountUsers(r.Context()); err != nil {
		s.logger.Error("health check store failure", "error", err)
		s.sendJSONError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
