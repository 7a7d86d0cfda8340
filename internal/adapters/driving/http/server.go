package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
	"github.com/custodia-labs/digest-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     chi.Router
	version    string
	maxUpload  int64
	logger     *slog.Logger

	pipeline driving.PipelineService
	auth     driven.AuthAdapter // nil disables bearer auth

	// Readiness checks, keyed by component name
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string

	// MaxUploadBytes caps the accepted PDF size. Requests a little over it
	// still reach the pipeline so it can answer with a precise error.
	MaxUploadBytes int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		Version:        "dev",
		CORSOrigins:    []string{"http://localhost:3000", "http://frontend:3000"},
		MaxUploadBytes: 5 * 1024 * 1024,
	}
}

// Deps are the collaborators the server routes to
type Deps struct {
	Pipeline driving.PipelineService
	Auth     driven.AuthAdapter
	Checks   map[string]Pinger
	Logger   *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Deps) *Server {
	def := DefaultConfig()
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = def.CORSOrigins
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		router:    chi.NewRouter(),
		version:   cfg.Version,
		maxUpload: cfg.MaxUploadBytes,
		logger:    deps.Logger,
		pipeline:  deps.Pipeline,
		auth:      deps.Auth,
		checks:    deps.Checks,
	}

	s.setupRoutes(cfg.CORSOrigins)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(origins []string) {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(s.logger).Handler)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/version", s.handleVersion)
	r.Get("/swagger/doc.json", s.handleSwagger)

	r.Group(func(api chi.Router) {
		if s.auth != nil {
			api.Use(NewAuthMiddleware(s.auth).Authenticate)
		}

		api.Route("/api/v1", func(v1 chi.Router) {
			v1.Post("/documents", s.handleSubmit)
			v1.Get("/documents", s.handleListDocuments)
			v1.Get("/documents/{id}", s.handleGetDocument)
			v1.Get("/queue/stats", s.handleQueueStats)
		})

		// Paths kept for existing frontends
		api.Post("/summarize", s.handleSubmit)
		api.Get("/summaries", s.handleLegacySummaries)
		api.Get("/status/{id}", s.handleLegacyStatus)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
