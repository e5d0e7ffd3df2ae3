// Package server exposes the diagram pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz                          liveness and build info
//	GET  /metrics                          Prometheus metrics
//	POST /v1/diagrams                      graph JSON in, artifacts out
//	POST /v1/layout                        graph JSON in, layout tree out
//	GET  /v1/diagrams/{name}/history       recorded generations
//	GET  /v1/diagrams/{name}/diff          change between two generations
//
// The server never collects inventory itself; callers post graphs produced
// by `azdiagram collect`.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/azdiagram/pkg/pipeline"
)

// DefaultMaxBody caps request bodies.
const DefaultMaxBody = 32 << 20

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	gatherer prometheus.Gatherer
	maxBody  int64
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithGatherer sets the metrics source for /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithMaxBody overrides DefaultMaxBody.
func WithMaxBody(n int64) Option { return func(s *Server) { s.maxBody = n } }

// New creates a server around runner. History endpoints use
// runner.History and answer 501 when it is nil.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:   runner,
		logger:   log.Default(),
		gatherer: prometheus.DefaultGatherer,
		maxBody:  DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/diagrams", s.handleRender)
		r.Post("/layout", s.handleLayout)
		r.Get("/diagrams/{name}/history", s.handleHistory)
		r.Get("/diagrams/{name}/diff", s.handleDiff)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       time.Minute,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}
