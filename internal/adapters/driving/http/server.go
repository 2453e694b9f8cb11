package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/custodia-labs/countersign/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService     driving.AuthService
	userService     driving.UserService
	instanceService driving.InstanceService
	signingService  driving.SigningService

	// Infrastructure checked by /ready
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"*"},
	}
}

// Services groups the driving ports the server exposes
type Services struct {
	Auth     driving.AuthService
	Users    driving.UserService
	Instance driving.InstanceService
	Signing  driving.SigningService
}

// NewServer creates a new HTTP server. checks maps a dependency name to its
// health probe; nil probes are skipped.
func NewServer(cfg Config, svc Services, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		authService:     svc.Auth,
		userService:     svc.Users,
		instanceService: svc.Instance,
		signingService:  svc.Signing,
		checks:          checks,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.wrap(s.router, cfg.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// wrap applies the global middleware chain: recovery, logging, CORS
func (s *Server) wrap(h http.Handler, origins []string) http.Handler {
	h = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         86400,
	}).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	return NewRecoveryMiddleware(s.logger).Handler(h)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	owner := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /openapi.json", s.handleOpenAPI)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout", owner(s.handleLogout))
	s.router.Handle("GET /api/v1/me", owner(s.handleGetMe))

	// Signing endpoints are reached through the emailed link. The recipient
	// ID in the link is the credential.
	s.router.HandleFunc("GET /api/v1/signing/{id}", s.handleSigningView)
	s.router.HandleFunc("POST /api/v1/signing/{id}/submit", s.handleSubmit)

	// Instance endpoints (owner)
	s.router.Handle("POST /api/v1/instances", owner(s.handleCreateInstance))
	s.router.Handle("GET /api/v1/instances", owner(s.handleListInstances))
	s.router.Handle("GET /api/v1/instances/deleted", owner(s.handleListDeleted))
	s.router.Handle("GET /api/v1/instances/sent", owner(s.handleListSent))
	s.router.Handle("GET /api/v1/instances/inbox", owner(s.handleInbox))
	s.router.Handle("GET /api/v1/instances/{id}", owner(s.handleGetInstance))
	s.router.Handle("PUT /api/v1/instances/{id}/fields", owner(s.handleUpdateFields))
	s.router.Handle("DELETE /api/v1/instances/{id}", owner(s.handleDeleteInstance))
	s.router.Handle("POST /api/v1/instances/{id}/restore", owner(s.handleRestoreInstance))
	s.router.Handle("DELETE /api/v1/instances/{id}/permanent", owner(s.handlePurgeInstance))
	s.router.Handle("POST /api/v1/instances/{id}/favorite", owner(s.handleToggleFavorite))
	s.router.Handle("POST /api/v1/instances/{id}/send", owner(s.handleSendInstance))
	s.router.Handle("GET /api/v1/instances/{id}/download", owner(s.handleDownload))
}

// Handler returns the fully wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
