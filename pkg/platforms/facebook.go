package platforms

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// FacebookActorID is the remote actor used for Facebook post search.
const FacebookActorID = "alien_force/facebook-posts-comments-scraper"

// Facebook actor input defaults.
const (
	// DefaultFacebookCommentsPerPost bounds comment expansion per post
	DefaultFacebookCommentsPerPost = 10
	// DefaultFacebookLanguage is the actor's search language
	DefaultFacebookLanguage = "pt"
)

// FacebookConnector collects Facebook posts through the actor's free-text
// search mode.
type FacebookConnector struct {
	logger *logrus.Logger
}

// NewFacebookConnector creates the Facebook connector.
func NewFacebookConnector(logger *logrus.Logger) *FacebookConnector {
	if logger == nil {
		logger = logrus.New()
	}
	return &FacebookConnector{logger: logger}
}

// Platform returns the platform this connector serves.
func (c *FacebookConnector) Platform() posts.Platform {
	return posts.PlatformFacebook
}

// ActorID returns the remote actor identifier.
func (c *FacebookConnector) ActorID() string {
	return FacebookActorID
}

// Live reports that this connector performs real remote collection.
func (c *FacebookConnector) Live() bool {
	return true
}

// facebookInput is the actor's job-input payload.
type facebookInput struct {
	SearchQuery        string             `json:"searchQuery"`
	MaxPosts           int                `json:"maxPosts"`
	MaxCommentsPerPost int                `json:"maxCommentsPerPost"`
	IncludeReactions   bool               `json:"includeReactions"`
	IncludeShares      bool               `json:"includeShares"`
	Language           string             `json:"language"`
	Timeout            int                `json:"timeout"`
	OutputFormat       string             `json:"outputFormat"`
	ProxyConfiguration proxyConfiguration `json:"proxyConfiguration"`
}

// BuildInput assembles the actor payload. The timeout is forwarded in
// seconds.
func (c *FacebookConnector) BuildInput(query string, maxResults int, timeout time.Duration) (any, error) {
	if query == "" {
		return nil, errEmptyQuery("facebook")
	}

	c.logger.WithFields(logrus.Fields{
		"method":      "BuildInput",
		"platform":    posts.PlatformFacebook,
		"query":       query,
		"max_results": maxResults,
	}).Debug("Built Facebook actor input")

	return facebookInput{
		SearchQuery:        query,
		MaxPosts:           maxResults,
		MaxCommentsPerPost: DefaultFacebookCommentsPerPost,
		IncludeReactions:   true,
		IncludeShares:      true,
		Language:           DefaultFacebookLanguage,
		Timeout:            int(timeout.Seconds()),
		OutputFormat:       "json",
		ProxyConfiguration: residentialProxy,
	}, nil
}

// facebookRaw is the actor's raw record shape, reduced to the fields the
// normalized schema needs.
type facebookRaw struct {
	PostID         string `json:"postId"`
	Text           string `json:"text"`
	AuthorName     string `json:"authorName"`
	AuthorURL      string `json:"authorUrl"`
	AuthorVerified bool   `json:"authorVerified"`
	PostURL        string `json:"postUrl"`
	PublishedTime  string `json:"publishedTime"`
	LikesCount     int    `json:"likesCount"`
	CommentsCount  int    `json:"commentsCount"`
	SharesCount    int    `json:"sharesCount"`
	ReactionsCount int    `json:"reactionsCount"`
	Reactions      struct {
		Like  int `json:"like"`
		Love  int `json:"love"`
		Wow   int `json:"wow"`
		Haha  int `json:"haha"`
		Sad   int `json:"sad"`
		Angry int `json:"angry"`
	} `json:"reactions"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Videos []struct {
		URL       string `json:"url"`
		Thumbnail string `json:"thumbnail"`
	} `json:"videos"`
}

// MapRecord converts one raw Facebook record into the generic post shape.
// When the actor omits likesCount the total reaction count stands in, and
// failing that the individual reaction buckets are summed.
func (c *FacebookConnector) MapRecord(raw json.RawMessage) (*posts.NormalizedPost, error) {
	var rec facebookRaw
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("platforms: decoding facebook record: %w", err)
	}
	if rec.PostID == "" {
		return nil, fmt.Errorf("platforms: facebook record has no identifier")
	}

	likes := rec.LikesCount
	if likes == 0 {
		likes = rec.ReactionsCount
	}
	if likes == 0 {
		r := rec.Reactions
		likes = r.Like + r.Love + r.Wow + r.Haha + r.Sad + r.Angry
	}

	var createdAt time.Time
	if rec.PublishedTime != "" {
		if t, err := time.Parse(time.RFC3339, rec.PublishedTime); err == nil {
			createdAt = t
		}
	}

	var thumbnail string
	if len(rec.Images) > 0 {
		thumbnail = rec.Images[0].URL
	} else if len(rec.Videos) > 0 {
		thumbnail = rec.Videos[0].Thumbnail
	}

	return &posts.NormalizedPost{
		Platform:       posts.PlatformFacebook,
		ID:             rec.PostID,
		Text:           rec.Text,
		Author:         rec.AuthorName,
		AuthorVerified: rec.AuthorVerified,
		URL:            rec.PostURL,
		ThumbnailURL:   thumbnail,
		CreatedAt:      createdAt,
		Engagement: posts.Engagement{
			Likes:    likes,
			Comments: rec.CommentsCount,
			Shares:   rec.SharesCount,
		},
		Hashtags: ExtractHashtags(rec.Text),
	}, nil
}
