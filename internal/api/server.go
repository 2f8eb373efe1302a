// Package api exposes the BoondManager client, snapshots, quality reports
// and reconciliation runs over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/staffline/boond-sync/internal/monitoring"
	"github.com/staffline/boond-sync/internal/quality"
	"github.com/staffline/boond-sync/internal/resilience"
	"github.com/staffline/boond-sync/internal/store"
	boondsync "github.com/staffline/boond-sync/internal/sync"
	"github.com/staffline/boond-sync/pkg/boond"
)

// Syncer is the subset of *sync.Service the handlers use.
type Syncer interface {
	Client(env boond.Environment) (boond.Client, error)
	FetchAllData(ctx context.Context, env boond.Environment) (*boondsync.Snapshot, error)
	AnalyzeAllDataQuality(ctx context.Context, env boond.Environment) (*quality.EnvironmentReport, error)
	SyncProdToSandbox(ctx context.Context) (*boondsync.Result, error)
}

// Server holds the handler dependencies.
type Server struct {
	svc         Syncer
	defaultEnv  boond.Environment
	runs        store.RunStore
	breakers    *resilience.Breakers
	metrics     *monitoring.Metrics
	origins     []string
	syncTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultEnvironment sets the environment used when a request names none.
func WithDefaultEnvironment(env boond.Environment) Option {
	return func(s *Server) { s.defaultEnv = env }
}

// WithRuns enables the run history endpoints.
func WithRuns(runs store.RunStore) Option {
	return func(s *Server) { s.runs = runs }
}

// WithBreakers reports circuit states on /health.
func WithBreakers(b *resilience.Breakers) Option {
	return func(s *Server) { s.breakers = b }
}

// WithMetrics serves /metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithSyncTimeout bounds a reconciliation run started over HTTP. Zero means
// the run lives as long as the request.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Server) { s.syncTimeout = d }
}

// NewServer creates a Server over svc.
func NewServer(svc Syncer, opts ...Option) *Server {
	s := &Server{svc: svc, defaultEnv: boond.Sandbox}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)
	// Set before the sub-routers are mounted so they inherit both.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: "no route for " + r.Method + " " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Error: "method " + r.Method + " not allowed on " + r.URL.Path})
	})

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/boond", func(r chi.Router) {
		r.Get("/documents/{id}/download", s.downloadDocument)
		r.Get("/{type}", s.listRecords)
		r.Get("/{type}/{id}", s.getRecord)
		r.Get("/{type}/{id}/resumes", s.getResumes)
	})

	r.Route("/api/sync", func(r chi.Router) {
		r.Get("/snapshot", s.snapshot)
		r.Get("/quality", s.quality)
		r.Post("/prod-to-sandbox", s.prodToSandbox)
		if s.runs != nil {
			r.Get("/runs", s.listRuns)
			r.Get("/runs/{id}", s.getRun)
		}
	})
	return r
}
