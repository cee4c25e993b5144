package memory

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialpulse/harvester-go/pkg/db/models"
	"github.com/socialpulse/harvester-go/pkg/posts"
)

// ReportStore writes and queries orchestration reports. The full report
// document is kept as jsonb next to the indexed summary columns.
type ReportStore struct {
	mu     sync.RWMutex
	logger *logrus.Logger
	db     *gorm.DB
}

func NewReportStore(logger *logrus.Logger, db *gorm.DB) (*ReportStore, error) {
	if db == nil {
		return nil, fmt.Errorf("memory: database handle is required")
	}
	return &ReportStore{
		logger: logger,
		db:     db,
	}, nil
}

// SaveReport upserts a session's report. Re-running a session replaces the
// stored document.
func (s *ReportStore) SaveReport(report *posts.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report == nil {
		return fmt.Errorf("memory: report is required")
	}

	log := s.logger.WithFields(logrus.Fields{
		"method":     "SaveReport",
		"session_id": report.SessionID,
		"query":      report.Query,
	})
	log.Debug("Attempting to save report")

	document, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("memory: failed to marshal report document: %w", err)
	}

	now := time.Now()
	reportData := map[string]interface{}{
		"session_id":           report.SessionID,
		"query":                report.Query,
		"success":              report.Success,
		"total_posts":          report.TotalPosts,
		"platforms_analyzed":   report.PlatformsAnalyzed,
		"successful_platforms": platformNames(report.SuccessfulPlatforms),
		"failed_platforms":     platformNames(report.FailedPlatforms),
		"data_source":          string(report.DataSource),
		"document":             string(document),
		"generated_at":         report.GeneratedAt,
		"created_at":           now,
	}

	result := s.db.Table("harvest_reports").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.Assignments(reportData),
		}).
		Create(reportData)

	if result.Error != nil {
		return fmt.Errorf("memory: failed to save report: %w", result.Error)
	}

	log.WithFields(logrus.Fields{
		"total_posts": report.TotalPosts,
		"data_source": report.DataSource,
	}).Info("Successfully saved report to database")
	return nil
}

// GetReport returns the stored report row for a session.
func (s *ReportStore) GetReport(sessionID string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row models.Report
	result := s.db.Where("session_id = ?", sessionID).First(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("memory: report not found for session %s: %w", sessionID, result.Error)
	}
	return &row, nil
}

// RecentReports returns the latest stored reports, newest first.
func (s *ReportStore) RecentReports(limit int) []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	var rows []models.Report
	s.db.Order("generated_at DESC").
		Limit(limit).
		Find(&rows)
	return rows
}

func platformNames(platforms []posts.Platform) pq.StringArray {
	names := make(pq.StringArray, 0, len(platforms))
	for _, platform := range platforms {
		names = append(names, string(platform))
	}
	return names
}
