// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/snaplink/snaplink/internal/config"
	"github.com/snaplink/snaplink/internal/handlers"
	"github.com/snaplink/snaplink/internal/metrics"
	"github.com/snaplink/snaplink/internal/middleware"
	"github.com/snaplink/snaplink/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	cfg             *config.Config
	log             *logger.Logger
	httpServer      *http.Server
	healthHandler   *handlers.HealthHandler
	urlHandler      *handlers.URLHandler
	redirectHandler *handlers.RedirectHandler
	listener        net.Listener
	running         bool
	mu              sync.RWMutex
}

// New creates a new Server instance.
func New(cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		log:           log,
		healthHandler: handlers.NewHealthHandler(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := middleware.New(
		middleware.Metrics(),
		middleware.RequestID(),
	).Then(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// registerRoutes sets up the HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Operational routes; ServeMux matches these before the /{code} pattern
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	mux.Handle("GET /metrics", metrics.Handler())

	// API route - URL shortening
	mux.HandleFunc("POST /api/shorten", s.handleShorten)

	// Redirect route - GET /{code}
	mux.HandleFunc("GET /{code}", s.handleRedirect)
}

// handleShorten routes to the URL handler for shortening.
func (s *Server) handleShorten(w http.ResponseWriter, r *http.Request) {
	if s.urlHandler == nil {
		http.Error(w, "URL service not configured", http.StatusServiceUnavailable)
		return
	}
	s.urlHandler.Shorten(w, r)
}

// handleRedirect routes to the redirect handler. The {code} segment is
// matched case-sensitively.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	if s.redirectHandler == nil {
		http.Error(w, "Redirect service not configured", http.StatusServiceUnavailable)
		return
	}
	shortCode := r.PathValue("code")
	if shortCode == "" {
		http.Error(w, "invalid short code", http.StatusBadRequest)
		return
	}
	s.redirectHandler.Redirect(w, r, shortCode)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address()

	// Create listener first to get the actual address (important when port is 0)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.Info("server starting", "address", listener.Addr().String())

	err = s.httpServer.Serve(listener)
	if err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")

	// Mark as not ready during shutdown
	s.healthHandler.SetReady(false)

	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.log.Error("shutdown error", "error", err.Error())
		return err
	}

	s.log.Info("server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// HealthHandler returns the health handler.
func (s *Server) HealthHandler() *handlers.HealthHandler {
	return s.healthHandler
}

// SetURLHandler sets the shorten handler for the server.
func (s *Server) SetURLHandler(h *handlers.URLHandler) {
	s.urlHandler = h
}

// SetRedirectHandler sets the redirect handler for the server.
func (s *Server) SetRedirectHandler(h *handlers.RedirectHandler) {
	s.redirectHandler = h
}
