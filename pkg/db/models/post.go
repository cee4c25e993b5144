package models

import (
	"time"

	"github.com/lib/pq"
)

// DataSource mirrors the result provenance enum stored in postgres.
type DataSource string

const (
	DataSourceLive          DataSource = "live"
	DataSourceFallback      DataSource = "fallback"
	DataSourceFallbackEmpty DataSource = "fallback_empty"
	DataSourceError         DataSource = "error"
)

// Post is the database model for one normalized social media post.
// Platform is plain text rather than an enum so new networks can be
// ingested without a schema change.
type Post struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	SessionID string    `gorm:"column:session_id;not null;uniqueIndex:idx_harvest_posts_identity,priority:1"`
	Platform  string    `gorm:"column:platform;not null;uniqueIndex:idx_harvest_posts_identity,priority:2;index:idx_harvest_posts_platform"`
	PostID    string    `gorm:"column:post_id;not null;uniqueIndex:idx_harvest_posts_identity,priority:3"`
	Text      string    `gorm:"column:text"`
	PostedAt  time.Time `gorm:"column:posted_at"`

	// Author Information
	Author          string `gorm:"column:author"`
	AuthorVerified  bool   `gorm:"column:author_verified;default:false"`
	AuthorFollowers int    `gorm:"column:author_followers;default:0"`

	// Post Location
	URL          string `gorm:"column:url"`
	ThumbnailURL string `gorm:"column:thumbnail_url"`

	// Engagement Metrics
	Likes    int `gorm:"column:likes;default:0"`
	Comments int `gorm:"column:comments;default:0"`
	Shares   int `gorm:"column:shares;default:0"`
	Views    int `gorm:"column:views;default:0"`

	// Analysis Fields
	Sentiment     string         `gorm:"column:sentiment"`
	ViralityScore float64        `gorm:"column:virality_score;default:0"`
	Hashtags      pq.StringArray `gorm:"column:hashtags;type:text[]"`

	// Operational Fields
	DataSource DataSource `gorm:"column:data_source;type:harvest_data_source;not null;default:'live'"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the Post model
func (Post) TableName() string {
	return "harvest_posts"
}
