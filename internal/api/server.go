// Package api exposes lookups, identity matching, routing and case runs over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/identity"
	"benefit-orchestrator/internal/orchestrator"
	"benefit-orchestrator/internal/records"
	"benefit-orchestrator/internal/routing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies of the API. Driver may be nil, which disables case runs.
type Dependencies struct {
	Store   *records.Store
	Matcher *identity.Matcher
	Router  *routing.Router
	Driver  *orchestrator.Driver
	Checks  []ReadinessCheck
}

type Server struct {
	deps Dependencies
	log  logger.Logger
}

func NewServer(deps Dependencies, log logger.Logger) *Server {
	return &Server{
		deps: deps,
		log:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cases/{caseId}", s.getCase)
		r.Get("/cases/{caseId}/documents/{documentId}", s.getDocument)
		r.Post("/cases/{caseId}/run", s.runCase)

		r.Post("/identity/search", s.searchIdentity)
		r.Post("/identity/verify", s.verifyIdentity)

		r.Post("/routing/next", s.routeNext)
	})
	return r
}

// NewHTTPServer wraps Routes with the timeouts used in production.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
		})
	})
}
