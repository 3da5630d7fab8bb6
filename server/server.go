// Package server exposes the dashboard as a JSON API for a browser front-end.
//
//	GET  /healthz         liveness
//	GET  /api/options     filter controls and the default selection
//	GET  /api/dashboard   dashboard for the default selection
//	POST /api/dashboard   dashboard for the selection in the body (JSON or YAML)
//	GET  /metrics         prometheus exposition, when a gatherer is set
//
// The incident file is read through a store.Cache, so edits to the file are
// picked up on the next request without a restart.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/dashboard"
	"github.com/spektr-org/threatlens/store"
)

// maxBodyBytes bounds a POSTed selection document.
const maxBodyBytes = 1 << 20

// Server routes API requests to the dashboard.
type Server struct {
	router   *chi.Mux
	logger   *zap.Logger
	cache    *store.Cache
	path     string
	gatherer prometheus.Gatherer
	opts     []dashboard.Option
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer mounts /metrics over g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithDashboardOptions are passed to every dashboard.Build call.
func WithDashboardOptions(opts ...dashboard.Option) Option {
	return func(s *Server) {
		s.opts = append(s.opts, opts...)
	}
}

// New builds a server reading the incident file at path through cache.
func New(cache *store.Cache, path string, opts ...Option) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: zap.NewNop(),
		cache:  cache,
		path:   path,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("server")

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/dashboard", s.handleDefaultDashboard)
		r.Post("/dashboard", s.handleDashboard)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// ServeHTTP lets a Server be used as a standard http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests logs one line per request through zap.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		defer func() {
			s.logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(started)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
