// Package api exposes the orchestrator over HTTP: trigger a harvest, read
// session and process statistics, and fetch persisted reports.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/memory"
	"github.com/socialpulse/harvester-go/pkg/orchestrator"
	"github.com/socialpulse/harvester-go/pkg/reports"
	"github.com/socialpulse/harvester-go/pkg/telemetry"
)

// Config carries the server's collaborators. Posts and ReportRows are
// optional; without a database the server persists to the filesystem only.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Reports      *reports.Store
	Posts        *memory.PostStore
	ReportRows   *memory.ReportStore
	Logger       *logrus.Logger
}

// Server wires the HTTP handlers for the harvesting API.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	reports      *reports.Store
	posts        *memory.PostStore
	reportRows   *memory.ReportStore
	logger       *logrus.Logger
}

// New constructs the API server.
func New(config Config) (*Server, error) {
	if config.Orchestrator == nil {
		return nil, fmt.Errorf("api: orchestrator is required")
	}
	if config.Reports == nil {
		return nil, fmt.Errorf("api: report store is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("api: logger is required")
	}
	return &Server{
		orchestrator: config.Orchestrator,
		reports:      config.Reports,
		posts:        config.Posts,
		reportRows:   config.ReportRows,
		logger:       config.Logger,
	}, nil
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Get("/sessions/{sessionID}/stats", s.handleSessionStats)
		r.Get("/sessions/{sessionID}/report", s.handleSessionReport)
		r.Get("/stats", s.handleGlobalStats)
		r.Post("/cleanup", s.handleCleanup)
	})
	return r
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   recorder.status,
			"duration": time.Since(started).String(),
			"remote":   r.RemoteAddr,
		}).Info("HTTP request handled")
	})
}
