// Package reports persists orchestration reports as JSON documents on the
// local filesystem, one file per session.
package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/socialpulse/harvester-go/pkg/posts"
)

// DefaultBaseDir is where report files land when no directory is given.
const DefaultBaseDir = "data/reports"

// Store writes and reads report documents under a base directory.
type Store struct {
	baseDir string
	logger  *logrus.Logger
}

// NewStore creates a Store rooted at baseDir. An empty baseDir selects
// the default.
func NewStore(baseDir string, logger *logrus.Logger) *Store {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{baseDir: baseDir, logger: logger}
}

// Save writes the report to <baseDir>/<sessionID>.json and returns the
// path. The write goes through a temp file and rename so a concurrent
// reader never observes a partial document.
func (s *Store) Save(report *posts.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("reports: report is required")
	}
	if err := validateSessionID(report.SessionID); err != nil {
		return "", err
	}

	path := s.ReportPath(report.SessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("reports: failed to create directory %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reports: failed to marshal report: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("reports: failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("reports: failed to finalize %s: %w", path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"method":     "Save",
		"session_id": report.SessionID,
		"path":       path,
		"bytes":      len(data),
	}).Info("Report persisted")
	return path, nil
}

// Load reads the report stored for a session.
func (s *Store) Load(sessionID string) (*posts.Report, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.ReportPath(sessionID))
	if err != nil {
		return nil, fmt.Errorf("reports: failed to read report for session %s: %w", sessionID, err)
	}

	var report posts.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("reports: failed to decode report for session %s: %w", sessionID, err)
	}
	return &report, nil
}

// List returns the session IDs with a stored report, sorted by filename.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reports: failed to list %s: %w", s.baseDir, err)
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}

// ReportPath returns where a session's report lives.
func (s *Store) ReportPath(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID+".json")
}

// validateSessionID rejects IDs that would escape the base directory.
func validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("reports: session id is required")
	}
	if strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return fmt.Errorf("reports: invalid session id %q", sessionID)
	}
	return nil
}
