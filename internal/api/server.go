// Package api serves address resolution and assignment administration
// over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
)

// Server routes HTTP requests to a territory.Service.
type Server struct {
	router  chi.Router
	svc     *territory.Service
	pinger  store.Pinger
	limiter *rate.Limiter
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithPinger makes /health check the backing store.
func WithPinger(p store.Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithRateLimit limits resolve endpoints to rps requests per second with
// the given burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer builds the router for svc.
func NewServer(svc *territory.Service, opts ...Option) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		svc:     svc,
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(s.limiter))
			r.Post("/resolve", s.handleResolve)
			r.Post("/resolve/batch", s.handleResolveBatch)
		})

		r.Get("/assignments", s.handleListAssignments)
		r.Put("/assignments/{type}/{code}", s.handleUpsertAssignment)
		r.Delete("/assignments/{type}/{code}", s.handleDeleteAssignment)
		r.Get("/overrides", s.handleOverrides)

		r.Get("/installers", s.handleListInstallers)
		r.Put("/installers/{id}", s.handleUpsertInstaller)
	})
}
