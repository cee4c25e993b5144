// Package memory persists normalized posts and reports through gorm so
// past harvests can be queried after the process restarts.
package memory

import (
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

// PostStore writes and queries harvested posts.
type PostStore struct {
	mu     sync.RWMutex
	logger *logrus.Logger
	db     *gorm.DB
}

func NewPostStore(logger *logrus.Logger, db *gorm.DB) (*PostStore, error) {
	if db == nil {
		return nil, fmt.Errorf("memory: database handle is required")
	}
	return &PostStore{
		logger: logger,
		db:     db,
	}, nil
}

// SavePosts stores one platform's records for a session. A record already
// present for the same session, platform and post id is left untouched, so
// replaying a session never duplicates rows.
func (s *PostStore) SavePosts(sessionID string, platform posts.Platform, records []posts.NormalizedPost, dataSource posts.DataSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"method":     "SavePosts",
		"session_id": sessionID,
		"platform":   platform,
		"records":    len(records),
	})

	if len(records) == 0 {
		log.Debug("No records to save")
		return nil
	}

	rows := make([]models.Post, 0, len(records))
	for _, record := range records {
		rows = append(rows, toPostRow(sessionID, record, dataSource))
	}

	result := s.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "session_id"},
				{Name: "platform"},
				{Name: "post_id"},
			},
			DoNothing: true,
		}).
		Create(&rows)

	if result.Error != nil {
		return fmt.Errorf("memory: failed to save posts: %w", result.Error)
	}

	log.WithFields(logrus.Fields{
		"inserted": result.RowsAffected,
	}).Info("Successfully saved posts to database")
	return nil
}

// GetSessionPosts returns every stored post of a session, most viral first.
func (s *PostStore) GetSessionPosts(sessionID string) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []models.Post
	s.db.Where("session_id = ?", sessionID).
		Order("virality_score DESC").
		Find(&rows)
	return rows
}

// GetPlatformPosts returns one platform's stored posts of a session.
func (s *PostStore) GetPlatformPosts(sessionID string, platform posts.Platform) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []models.Post
	s.db.Where("session_id = ? AND platform = ?", sessionID, string(platform)).
		Order("virality_score DESC").
		Find(&rows)
	return rows
}

// TopViralPosts returns the highest scoring posts across all sessions.
func (s *PostStore) TopViralPosts(limit int) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	var rows []models.Post
	s.db.Order("virality_score DESC").
		Limit(limit).
		Find(&rows)
	return rows
}

func toPostRow(sessionID string, record posts.NormalizedPost, dataSource posts.DataSource) models.Post {
	return models.Post{
		SessionID:       sessionID,
		Platform:        string(record.Platform),
		PostID:          record.ID,
		Text:            record.Text,
		PostedAt:        record.CreatedAt,
		Author:          record.Author,
		AuthorVerified:  record.AuthorVerified,
		AuthorFollowers: record.AuthorFollowers,
		URL:             record.URL,
		ThumbnailURL:    record.ThumbnailURL,
		Likes:           record.Engagement.Likes,
		Comments:        record.Engagement.Comments,
		Shares:          record.Engagement.Shares,
		Views:           record.Engagement.Views,
		Sentiment:       string(record.Sentiment),
		ViralityScore:   record.ViralityScore,
		Hashtags:        pq.StringArray(record.Hashtags),
		DataSource:      models.DataSource(dataSource),
		CreatedAt:       time.Now(),
	}
}
