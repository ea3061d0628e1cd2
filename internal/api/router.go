// Package api exposes curricula and study sessions over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-study/internal/live"
	"github.com/p-n-ai/pai-study/internal/study"
)

// readyTimeout bounds each readiness check.
const readyTimeout = 2 * time.Second

// HealthChecker is a backing service probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the dependencies of the HTTP API.
type Config struct {
	Loader         CurriculumLoader
	Sessions       *study.Service
	Hub            *live.Hub
	Checks         map[string]HealthChecker
	OriginPatterns []string // allowed WebSocket origins besides same-origin
	Metrics        http.Handler // served at /metrics when set
}

// Server serves the JSON API.
type Server struct {
	loader     CurriculumLoader
	sessions   *study.Service
	hub        *live.Hub
	checks     map[string]HealthChecker
	ws         *live.Handler
	metrics    http.Handler
	curriculum curriculumBody
	mux        *http.ServeMux
}

// NewServer registers every route. Use Handler to serve them.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Loader == nil {
		return nil, errors.New("curriculum loader is nil")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session service is nil")
	}
	hub := cfg.Hub
	if hub == nil {
		hub = live.NewHub()
	}

	s := &Server{
		loader:   cfg.Loader,
		sessions: cfg.Sessions,
		hub:      hub,
		checks:   cfg.Checks,
		ws:       live.NewHandler(hub, cfg.Sessions, cfg.OriginPatterns...),
		metrics:  cfg.Metrics,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the routes wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	return Chain(s.mux, RequestID, Logger, Recovery)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("GET /api/curriculum", s.handleCurriculum)

	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/next", s.handleNext)
	s.mux.HandleFunc("POST /api/sessions/{id}/previous", s.handlePrevious)
	s.mux.HandleFunc("POST /api/sessions/{id}/next-question", s.handleNextQuestion)
	s.mux.HandleFunc("POST /api/sessions/{id}/jump", s.handleJump)
	s.mux.HandleFunc("POST /api/sessions/{id}/answer", s.handleAnswer)
	s.mux.HandleFunc("GET /api/sessions/{id}/studied", s.handleStudied)
	s.mux.HandleFunc("GET /api/sessions/{id}/preferences", s.handleGetPreferences)
	s.mux.HandleFunc("PUT /api/sessions/{id}/preferences", s.handleSetPreferences)
	s.mux.HandleFunc("GET /api/sessions/{id}/results.xlsx", s.handleResults)
	s.mux.Handle("GET /api/sessions/{id}/ws", s.ws)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.loader.Current(); !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "curriculum not loaded",
		})
		return
	}
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := check.HealthCheck(ctx)
		cancel()
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  name + ": " + err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
