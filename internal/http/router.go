// Package http exposes the interview platform's REST and websocket
// API.
package http

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/events"
	"github.com/anishjha12309/itero/internal/interview"
	"github.com/anishjha12309/itero/internal/observability/logging"
	"github.com/anishjha12309/itero/internal/observability/metrics"
	"github.com/anishjha12309/itero/internal/session"
)

// Server carries the handler dependencies and the registry of live
// websocket-driven sessions.
type Server struct {
	interviews *interview.Service
	publisher  *events.Publisher
	m          *metrics.Metrics
	logger     zerolog.Logger

	mu   sync.Mutex
	live map[string]*liveSession
}

// liveSession pairs a running event pipeline with the last code the
// candidate synced.
type liveSession struct {
	sess *session.Session
	code string
}

// NewServer creates the API server.
func NewServer(interviews *interview.Service, publisher *events.Publisher) *Server {
	return &Server{
		interviews: interviews,
		publisher:  publisher,
		m:          metrics.DefaultMetrics,
		logger:     logging.WithComponent("http"),
		live:       make(map[string]*liveSession),
	}
}

// Router constructs the HTTP router for the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.recordMetrics)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1/interviews", func(r chi.Router) {
		r.Post("/", s.startInterview)
		r.Get("/", s.listInterviews)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getInterview)
			r.Get("/room", s.getRoom)
			r.Put("/code", s.updateCode)
			r.Post("/end", s.endInterview)
			r.Get("/evaluation", s.getEvaluation)
			r.Get("/events", s.streamEvents)
		})
	})

	return r
}
