// Package server is the share server: a read-only course catalog and the
// shared-routine store behind short codes.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/alexanderramin/routinebuzz/internal/api"
	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/alexanderramin/routinebuzz/internal/realtime"
	"github.com/alexanderramin/routinebuzz/internal/repository"
)

const (
	shortCodeLen      = 8
	maxCodeAttempts   = 5
	defaultRateLimit  = 120
	shutdownGraceTime = 5 * time.Second
)

// Config controls the HTTP surface.
type Config struct {
	Addr string
	// RateLimit is the number of requests allowed per client IP per minute.
	RateLimit int
}

// Server serves the catalog and shared-routine endpoints.
type Server struct {
	cfg       Config
	uow       db.UnitOfWork
	sections  repository.SectionRepo
	routines  repository.SharedRoutineRepo
	publisher realtime.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newCode   func() string
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher announces routine updates. Without one updates are silent.
func WithPublisher(p realtime.Publisher) Option {
	return func(s *Server) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithCodeGenerator replaces the random short-code source.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Server) { s.newCode = gen }
}

func New(conn *sql.DB, cfg Config, opts ...Option) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	s := &Server{
		cfg:       cfg,
		uow:       db.NewSQLiteUnitOfWork(conn),
		sections:  repository.NewSQLiteSectionRepo(conn),
		routines:  repository.NewSQLiteSharedRoutineRepo(conn),
		publisher: realtime.NopPublisher{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   randomShortCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router with CORS, per-IP rate limiting and request logging.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))

	r.Get(api.PathHealth, s.handleHealth)
	r.Get(api.PathCourses, s.handleCourses)
	r.Get(api.PathCourseData, s.handleCourseData)
	r.Get(api.PathSections, s.handleSections)
	r.Post(api.PathRoutineCreate, s.handleCreateRoutine)
	r.Get(api.PathRoutineGet, s.handleGetRoutine)
	r.Post(api.PathRoutineUpdate, s.handleUpdateRoutine)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGraceTime)
		defer cancel()
		s.logger.Info("server_shutdown")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http: %w", err)
		}
		return nil
	}
}

func randomShortCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:shortCodeLen])
}
