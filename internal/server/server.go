// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides how the server starts and stops.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → OpenArchive (sqlite or file) → service.MealBook
//	             → service.SessionManager → handler.MealHandler / handler.FormHandler
//
// This is the "composition root" pattern: every dependency is built in New,
// rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/foodtracker/internal/config"
	"github.com/sakif/foodtracker/internal/form"
	"github.com/sakif/foodtracker/internal/handler"
	"github.com/sakif/foodtracker/internal/metrics"
	"github.com/sakif/foodtracker/internal/middleware"
	"github.com/sakif/foodtracker/internal/repository"
	fileRepo "github.com/sakif/foodtracker/internal/repository/file"
	sqliteRepo "github.com/sakif/foodtracker/internal/repository/sqlite"
	"github.com/sakif/foodtracker/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the meal archive. Start closes it during graceful
// shutdown; callers that never Start must call Close.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	archive  repository.MealArchive
	book     *service.MealBook
	sessions *service.SessionManager
}

// OpenArchive opens the archive backend named by cfg, creating the data
// directory if needed.
func OpenArchive(cfg *config.Config, logger *slog.Logger) (repository.MealArchive, error) {
	// 0755 = owner can read/write/execute, others can read/execute.
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return sqliteRepo.New(cfg.ArchivePath(), logger)
	case config.BackendFile:
		return fileRepo.New(cfg.Storage.DataDir, cfg.Storage.ArchiveName, logger)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Storage.Backend)
	}
}

// New creates a new Server from cfg.
//
// WIRING:
//  1. Open the archive and load the meal book from it
//  2. Create the session manager with the configured star count and size
//  3. Create the handlers and wire them to routes
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	archive, err := OpenArchive(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	book, err := service.NewMealBook(context.Background(), archive, logger)
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("loading meals: %w", err)
	}

	sessions := service.NewSessionManager(book, logger,
		form.WithStarCount(cfg.Rating.StarCount),
		form.WithStarSize(cfg.Rating.StarSize),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		archive:  archive,
		book:     book,
		sessions: sessions,
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                        → liveness (JSON)
// GET    /metrics                        → Prometheus
// GET    /api/meals                      → list meals
// GET    /api/meals/{index}              → one meal
// GET    /api/meals/{index}/photo        → meal photo
// DELETE /api/meals/{index}              → delete meal
// POST   /api/forms                      → open entry form (new or {"edit": n})
// GET    /api/forms/{id}                 → form view
// PUT    /api/forms/{id}/name            → edit name
// GET    /api/forms/{id}/photo           → form photo
// PUT    /api/forms/{id}/photo           → set photo (raw image body)
// POST   /api/forms/{id}/stars/{index}   → tap star
// PUT    /api/forms/{id}/stars           → reconfigure stars
// PUT    /api/forms/{id}/rating          → set rating
// POST   /api/forms/{id}/save            → save
// POST   /api/forms/{id}/cancel          → cancel
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (the logger reads it)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Metrics and Logger: record every request
// 4. Recoverer: turns a panic (a broken invariant) into a 500; it sits
//    inside Metrics and Logger so they record that 500
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", handler.HandleHealth(s.book, s.sessions))
	s.router.Handle("/metrics", metrics.Handler())

	mealHandler := handler.NewMealHandler(s.book, s.logger)
	formHandler := handler.NewFormHandler(s.sessions, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Mount("/meals", mealHandler.Routes())
		r.Mount("/forms", formHandler.Routes())
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the archive.
func (s *Server) Close() error { return s.archive.Close() }

// Start starts the HTTP server and blocks until SIGINT/SIGTERM.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Stop the session sweeper and archive watcher
//  4. Close the archive (flushes the SQLite WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Deferred after Close, so it runs first: the sweeper and watcher are
	// gone before the archive closes.
	stopBackground := s.startBackground(context.Background())
	defer stopBackground()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("archive", s.config.ArchivePath()),
			slog.String("backend", s.config.Storage.Backend),
			slog.Int("meals", s.book.Len()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// startBackground runs the session sweeper, and the archive watcher when
// enabled, until the returned stop is called. stop blocks until both have
// returned.
func (s *Server) startBackground(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.sweepSessions(ctx)
	}()

	if s.config.Storage.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchArchive(ctx)
		}()
	}

	return func() {
		cancel()
		wg.Wait()
	}
}

// sweepSessions cancels idle entry forms until ctx is done.
func (s *Server) sweepSessions(ctx context.Context) {
	ttl := s.config.Server.SessionTTL
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Expire(ctx, ttl); n > 0 {
				s.logger.Debug("expired idle form sessions", slog.Int("count", n))
			}
		}
	}
}

// watchArchive reloads the meal book whenever the file archive changes on
// disk, until ctx is done.
func (s *Server) watchArchive(ctx context.Context) {
	archive, ok := s.archive.(*fileRepo.Archive)
	if !ok {
		s.logger.Warn("archive watching is only supported by the file backend")
		return
	}

	err := archive.Watch(ctx, fileRepo.DefaultDebounce, func() {
		if _, err := s.book.Reload(ctx); err != nil {
			s.logger.Error("failed to reload meals", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		s.logger.Error("archive watcher stopped", slog.String("error", err.Error()))
	}
}
