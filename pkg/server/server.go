// Package server exposes document queries over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /documents                       ?kind=part,assembly&limit=N
//	GET  /documents/{id}
//	GET  /documents/{id}/references       ?transitive&only&exclude&native&modifiable&reserved&distinct&limit&preset
//	GET  /documents/{id}/referencing      ?only&exclude&native&modifiable&reserved&distinct&limit
//	GET  /documents/{id}/descriptors      ?skip_missing&skip_suppressed&missing_only&distinct&limit
//	POST /selection                       {"entries": [...], ...query options}
//	GET  /documents/{id}/graph.dot        ?depth&exclude&missing&suppressed&detailed
//	GET  /documents/{id}/graph.svg
//
// Errors are JSON objects with an error message and the error code; the HTTP
// status follows the code (see [StatusFor]).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/docwalk/pkg/cache"
	"github.com/matzehuels/docwalk/pkg/query"
)

// Config configures a Server.
type Config struct {
	// Logger receives request logs. Nil means log.Default.
	Logger *log.Logger

	// Metrics is served on /metrics when set.
	Metrics http.Handler

	// NonNative overrides the kinds removed by native=true.
	NonNative []string

	// SVGCache holds rendered graph.svg responses. Nil renders every time.
	SVGCache cache.Cache
}

// Server answers document queries against one backend.
type Server struct {
	backend   query.Backend
	runner    *query.Runner
	logger    *log.Logger
	nonNative []string
	svgCache  cache.Cache
	router    chi.Router
}

// New creates a server for b.
func New(b query.Backend, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		backend:   b,
		runner:    query.NewRunner(b, logger),
		logger:    logger,
		nonNative: cfg.NonNative,
		svgCache:  cfg.SVGCache,
	}
	s.router = s.routes(cfg.Metrics)
	return s
}

func (s *Server) routes(metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealthz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.instrument)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/references", s.handleRelation(query.RelationReferences))
		r.Get("/documents/{id}/referencing", s.handleRelation(query.RelationReferencing))
		r.Get("/documents/{id}/descriptors", s.handleRelation(query.RelationDescriptors))
		r.Get("/documents/{id}/graph.dot", s.handleGraph(formatDOT))
		r.Get("/documents/{id}/graph.svg", s.handleGraph(formatSVG))
		r.Post("/selection", s.handleSelection)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no such endpoint", Code: "NOT_FOUND"})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
