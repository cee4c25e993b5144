package models

import (
	"time"

	"github.com/lib/pq"
)

// Report is the database model for one persisted orchestration report.
// Document carries the full report JSON so the API can serve it back
// without reassembly.
type Report struct {
	ID        uint   `gorm:"primaryKey;column:id"`
	SessionID string `gorm:"column:session_id;not null;uniqueIndex:idx_harvest_reports_session"`
	Query     string `gorm:"column:query;not null"`
	Success   bool   `gorm:"column:success;default:false"`

	// Aggregate Counts
	TotalPosts        int `gorm:"column:total_posts;default:0"`
	PlatformsAnalyzed int `gorm:"column:platforms_analyzed;default:0"`

	// Per-Platform Outcome
	SuccessfulPlatforms pq.StringArray `gorm:"column:successful_platforms;type:text[]"`
	FailedPlatforms     pq.StringArray `gorm:"column:failed_platforms;type:text[]"`

	// Operational Fields
	DataSource  DataSource  `gorm:"column:data_source;type:harvest_data_source;not null;default:'live'"`
	Document    interface{} `gorm:"column:document;type:jsonb"`
	GeneratedAt time.Time   `gorm:"column:generated_at;not null"`
	CreatedAt   time.Time   `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the Report model
func (Report) TableName() string {
	return "harvest_reports"
}
