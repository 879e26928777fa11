// Package server provides the HTTP REST API for the recipe importer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recipe-importer/internal/config"
	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/server/middleware"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Store is the repository surface the API handlers depend on. *db.DB
// satisfies it.
type Store interface {
	UserStore
	CreateImport(ctx context.Context, userID uuid.UUID, url string) (*types.Import, error)
	GetImport(ctx context.Context, id uuid.UUID) (*types.Import, error)
	ListStatusEvents(ctx context.Context, importID uuid.UUID) ([]types.StatusEvent, error)
	GetNoteWithLines(ctx context.Context, noteID uuid.UUID) (*types.NoteWithLines, error)
}

// Enqueuer schedules background jobs. *queue.Queue satisfies it.
type Enqueuer interface {
	Add(ctx context.Context, queueName, operation string, payload any) (uuid.UUID, error)
}

// EventSource delivers live status events for an import.
// *broadcast.Broadcaster satisfies it.
type EventSource interface {
	Subscribe(importID uuid.UUID) (<-chan types.StatusEvent, func())
}

// ImageGetter serves stored note images. *storage.ImageStore satisfies it.
type ImageGetter interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       Store
	queue       Enqueuer
	events      EventSource
	images      ImageGetter
	health      *HealthChecker
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	log         *observability.Logger
	ssePoll     time.Duration
}

// Config holds server configuration
type Config struct {
	ListenAddr string
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithImages enables serving stored note images.
func WithImages(images ImageGetter) Option {
	return func(s *Server) { s.images = images }
}

// WithEventPollInterval sets how often the events stream re-reads persisted
// events as a fallback for deployments without a live event relay.
func WithEventPollInterval(d time.Duration) Option {
	return func(s *Server) { s.ssePoll = d }
}

// New creates a new server instance. JWT and password settings are read
// from the environment, matching the rest of the auth configuration.
// health may be nil, in which case the health endpoint skips the database
// check.
func New(cfg Config, store Store, q Enqueuer, events EventSource, health *HealthChecker, logger *observability.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = observability.Default()
	}

	s := &Server{
		store:   store,
		queue:   q,
		events:  events,
		health:  health,
		log:     logger,
		ssePoll: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	s.userService = NewUserService(store, passwordConfig)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", s.authHandler.Login)

	mux.Handle("POST /api/imports", auth(http.HandlerFunc(s.handleCreateImport)))
	mux.Handle("GET /api/imports/{id}", auth(http.HandlerFunc(s.handleGetImport)))
	mux.Handle("GET /api/imports/{id}/events", auth(http.HandlerFunc(s.handleImportEvents)))
	mux.Handle("GET /api/notes/{id}", auth(http.HandlerFunc(s.handleGetNote)))
	mux.Handle("GET /api/notes/{id}/image", auth(http.HandlerFunc(s.handleNoteImage)))

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     s.withLogging(s.withCORS(mux)),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the events endpoint holds SSE streams open.
		IdleTimeout: 60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.log.Infof("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Infof("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Infof("[%s] %s %s (%v)", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Check(r.Context()); err != nil {
			s.log.Errorf("health check failed: %v", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "database unreachable",
			})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
