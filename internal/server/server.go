package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/export"
	"github.com/dshills/mermaidflow/internal/metrics"
	"github.com/dshills/mermaidflow/internal/repair"
	"github.com/dshills/mermaidflow/internal/session"
	"github.com/dshills/mermaidflow/internal/store"
)

// Default limits.
const (
	DefaultShutdownTimeout = 5 * time.Second
	maxBodyBytes           = 1 << 20
)

// Config holds the server's collaborators. Sessions is required; the rest
// are optional and disable their routes' features when nil.
type Config struct {
	Sessions *session.Registry
	Store    store.Store
	Exporter *export.Exporter
	Bus      *event.Bus
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	// KeyValidator backs POST /api/ai/validate. Nil reports a missing key.
	KeyValidator repair.KeyValidator

	// Seed is the text for sessions created without one.
	Seed string

	// Background is the default SVG export background.
	Background string
}

// Server serves the HTTP API.
type Server struct {
	sessions   *session.Registry
	store      store.Store
	exporter   *export.Exporter
	bus        *event.Bus
	metrics    *metrics.Metrics
	logger     *zap.Logger
	validator  repair.KeyValidator
	seed       string
	background string

	router chi.Router
}

// New creates a server and mounts its routes.
func New(cfg Config) *Server {
	s := &Server{
		sessions:   cfg.Sessions,
		store:      cfg.Store,
		exporter:   cfg.Exporter,
		bus:        cfg.Bus,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		validator:  cfg.KeyValidator,
		seed:       cfg.Seed,
		background: cfg.Background,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.exporter == nil {
		s.exporter = export.New(nil, s.logger)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/edit", s.handleEdit)
			r.Post("/commit", s.handleCommit)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/reset", s.handleReset)
			r.Post("/keys", s.handleKey)
			r.Post("/repair", s.handleRepair)
			r.Get("/diagram", s.handleDiagram)
			r.Get("/export", s.handleExport)
			r.Get("/events", s.handleEvents)
			r.Post("/save", s.handleSave)
		})
	})

	r.Post("/api/ai/validate", s.handleValidateKey)

	r.Route("/api/diagrams", func(r chi.Router) {
		r.Get("/", s.handleListDiagrams)
		r.Post("/", s.handleCreateDiagram)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDiagram)
			r.Put("/", s.handleUpdateDiagram)
			r.Delete("/", s.handleDeleteDiagram)
			r.Get("/versions", s.handleListVersions)
			r.Post("/versions", s.handleCreateVersion)
			r.Post("/open", s.handleOpenDiagram)
		})
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
