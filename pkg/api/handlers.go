package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// defaultPlatforms is used when a scrape request names none.
var defaultPlatforms = []posts.Platform{posts.PlatformInstagram, posts.PlatformFacebook}

// defaultCleanupAge applies when a cleanup request has no max_age_hours.
const defaultCleanupAge = 24 * time.Hour

type scrapeRequest struct {
	Query                 string   `json:"query"`
	Platforms             []string `json:"platforms"`
	MaxResultsPerPlatform int      `json:"max_results_per_platform"`
	SessionID             string   `json:"session_id"`
}

type scrapeResponse struct {
	Report     *posts.Report `json:"report"`
	ReportPath string        `json:"report_path,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	// Unknown platform names are accepted; they resolve through fallback.
	platforms := make([]posts.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		platforms = append(platforms, posts.Platform(name))
	}
	if len(platforms) == 0 {
		platforms = defaultPlatforms
	}

	report, err := s.orchestrator.ExecuteComprehensiveScraping(r.Context(), req.Query, platforms, req.MaxResultsPerPlatform, req.SessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Persistence is best-effort; the caller still gets the report.
	path, err := s.reports.Save(report)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to persist report to filesystem")
	}
	s.persistToDatabase(report)

	writeJSON(w, http.StatusOK, scrapeResponse{Report: report, ReportPath: path})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, s.orchestrator.GetSessionStats(sessionID))
}

func (s *Server) handleSessionReport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	report, err := s.reports.Load(sessionID)
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.GetGlobalStats())
}

type cleanupResponse struct {
	Removed     int     `json:"removed"`
	MaxAgeHours float64 `json:"max_age_hours"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	maxAge := defaultCleanupAge
	if raw := r.URL.Query().Get("max_age_hours"); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours < 0 {
			http.Error(w, "max_age_hours must be a non-negative number", http.StatusBadRequest)
			return
		}
		maxAge = time.Duration(hours * float64(time.Hour))
	}

	removed := s.orchestrator.CleanupOldTasks(maxAge)
	writeJSON(w, http.StatusOK, cleanupResponse{
		Removed:     removed,
		MaxAgeHours: maxAge.Hours(),
	})
}

// persistToDatabase mirrors the report into postgres when stores are wired.
func (s *Server) persistToDatabase(report *posts.Report) {
	if s.posts != nil {
		for platform, result := range report.Platforms {
			if err := s.posts.SavePosts(report.SessionID, platform, result.Records, result.DataSource); err != nil {
				s.logger.WithError(err).WithField("platform", platform).Warn("Failed to persist posts to database")
			}
		}
	}
	if s.reportRows != nil {
		if err := s.reportRows.SaveReport(report); err != nil {
			s.logger.WithError(err).Warn("Failed to persist report to database")
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
