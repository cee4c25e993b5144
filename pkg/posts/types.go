// Package posts defines the platform-agnostic value types shared across the
// harvesting pipeline: normalized content items, per-platform results,
// sentiment aggregates and the final report returned to callers.
package posts

import "time"

// Platform identifies one external content platform.
type Platform string

// Supported platform identifiers.
const (
	// PlatformInstagram targets Instagram hashtag collection
	PlatformInstagram Platform = "instagram"
	// PlatformFacebook targets Facebook post search
	PlatformFacebook Platform = "facebook"
)

// ParsePlatform converts a raw string into a known Platform identifier.
// Unknown values are passed through unchanged with ok=false so callers can
// decide whether to reject them or route them to a null connector.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformInstagram, PlatformFacebook:
		return Platform(s), true
	}
	return Platform(s), false
}

// DataSource records how a PlatformResult was produced.
type DataSource string

// Data source constants define the provenance of a platform result.
const (
	// DataSourceLive indicates records fetched from the remote job API
	DataSourceLive DataSource = "live"
	// DataSourceFallback indicates synthetic records substituted after the
	// task's retry budget was exhausted
	DataSourceFallback DataSource = "fallback"
	// DataSourceFallbackEmpty indicates an empty result substituted because
	// the task's whole priority tier timed out before it resolved
	DataSourceFallbackEmpty DataSource = "fallback_empty"
	// DataSourceError indicates a result carrying only an error message
	DataSourceError DataSource = "error"
)

// Sentiment is the lexical classification of one post's text.
type Sentiment string

// Sentiment classification constants.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Engagement holds the raw interaction counters of one post.
type Engagement struct {
	// Likes is the like or reaction count
	Likes int `json:"likes"`
	// Comments is the comment count
	Comments int `json:"comments"`
	// Shares is the share count, zero on platforms without shares
	Shares int `json:"shares"`
	// Views is the video view count, zero for non-video posts
	Views int `json:"views"`
}

// NormalizedPost is the platform-agnostic representation of one collected
// content item after field mapping. Instances are read-only once the
// aggregator has built them.
type NormalizedPost struct {
	// Platform identifies where the post was collected
	Platform Platform `json:"platform"`
	// ID is the platform-native post identifier
	ID string `json:"id"`
	// Text is the post caption or body
	Text string `json:"text"`
	// Author is the display name or handle of the post author
	Author string `json:"author"`
	// AuthorVerified reports whether the platform marks the author verified
	AuthorVerified bool `json:"author_verified"`
	// AuthorFollowers is the author's follower count, zero when unknown
	AuthorFollowers int `json:"author_followers"`
	// URL links to the original post
	URL string `json:"url"`
	// ThumbnailURL links to the post's preview image, if any
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	// CreatedAt is the post's publication time
	CreatedAt time.Time `json:"created_at"`
	// Engagement holds the post's interaction counters
	Engagement Engagement `json:"engagement"`
	// Sentiment is the lexical classification of Text
	Sentiment Sentiment `json:"sentiment"`
	// ViralityScore is the bounded [0,100] weighted engagement score
	ViralityScore float64 `json:"virality_score"`
	// Hashtags lists hashtags found on the post, without the # prefix
	Hashtags []string `json:"hashtags,omitempty"`
}

// PlatformResult is the terminal outcome of one collection task. Exactly one
// is produced per requested platform and never mutated after it is returned.
type PlatformResult struct {
	// Platform identifies which platform this result covers
	Platform Platform `json:"platform"`
	// Success reports whether live collection succeeded
	Success bool `json:"success"`
	// Records holds the normalized posts in collection order
	Records []NormalizedPost `json:"records"`
	// Error carries the last failure message when Success is false
	Error string `json:"error,omitempty"`
	// DataSource records how this result was produced
	DataSource DataSource `json:"data_source"`
	// ResponseTimeMS is wall-clock milliseconds spent resolving the task
	ResponseTimeMS int64 `json:"response_time_ms,omitempty"`
}

// SentimentCounts tallies sentiment classifications for one scope, either a
// single platform or the whole report.
type SentimentCounts struct {
	// Positive is the number of positive records
	Positive int `json:"positive"`
	// Negative is the number of negative records
	Negative int `json:"negative"`
	// Neutral is the number of neutral records
	Neutral int `json:"neutral"`
	// Total is the number of classified records
	Total int `json:"total"`
	// Dominant is the plurality sentiment, neutral on a positive/negative tie
	Dominant Sentiment `json:"dominant"`
	// Confidence is |positive-negative| / total * 100, zero when Total is zero
	Confidence float64 `json:"confidence_score"`
}

// SentimentSummary aggregates sentiment per platform and overall.
type SentimentSummary struct {
	// ByPlatform holds one tally per analyzed platform
	ByPlatform map[Platform]SentimentCounts `json:"by_platform"`
	// Overall tallies every record across platforms
	Overall SentimentCounts `json:"overall"`
}

// SessionStats counts one session's tasks by bookkeeping state.
type SessionStats struct {
	// ActiveTasks is the number of tasks still running
	ActiveTasks int `json:"active_tasks"`
	// CompletedTasks is the number of tasks that resolved with live data
	CompletedTasks int `json:"completed_tasks"`
	// FailedTasks is the number of tasks that degraded or errored out
	FailedTasks int `json:"failed_tasks"`
	// TotalTasks is the sum of the three states
	TotalTasks int `json:"total_tasks"`
}

// GlobalStats is a point-in-time snapshot of the orchestrator's process-wide
// counters. The raw counters only ever increase for the life of the process.
type GlobalStats struct {
	// TotalTasks is the number of tasks ever built
	TotalTasks int64 `json:"total_tasks"`
	// SuccessfulTasks is the number of tasks that resolved with live data
	SuccessfulTasks int64 `json:"successful_tasks"`
	// FailedTasks is the number of tasks that exhausted their retry budget
	FailedTasks int64 `json:"failed_tasks"`
	// FallbackUsed is the number of fallback results substituted
	FallbackUsed int64 `json:"fallback_used"`
	// SuccessRate is SuccessfulTasks over TotalTasks as a percentage
	SuccessRate float64 `json:"success_rate"`
	// FallbackRate is FallbackUsed over TotalTasks as a percentage
	FallbackRate float64 `json:"fallback_rate"`
}

// Report is the final aggregate built once per orchestration call and
// returned to the caller. The orchestrator does not retain it.
type Report struct {
	// Success is true when at least one platform returned live data
	Success bool `json:"success"`
	// Query is the search query the report covers
	Query string `json:"query"`
	// SessionID groups this report's tasks in bookkeeping
	SessionID string `json:"session_id"`
	// Platforms maps each requested platform to its single result
	Platforms map[Platform]PlatformResult `json:"platforms"`
	// TotalPosts is the record count summed across platforms
	TotalPosts int `json:"total_posts"`
	// PlatformsAnalyzed is the number of requested platforms
	PlatformsAnalyzed int `json:"platforms_analyzed"`
	// SuccessfulPlatforms lists platforms that returned live data
	SuccessfulPlatforms []Platform `json:"successful_platforms"`
	// FailedPlatforms lists platforms that degraded to fallback output
	FailedPlatforms []Platform `json:"failed_platforms"`
	// Sentiment summarizes sentiment per platform and overall
	Sentiment SentimentSummary `json:"sentiment_analysis"`
	// DataSource is live when any platform succeeded, fallback otherwise
	DataSource DataSource `json:"data_source"`
	// GeneratedAt is when the report was assembled
	GeneratedAt time.Time `json:"generated_at"`
	// Stats snapshots the session's task bookkeeping at assembly time
	Stats SessionStats `json:"stats"`
}
