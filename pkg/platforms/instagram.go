package platforms

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// InstagramActorID is the remote actor used for Instagram hashtag collection.
const InstagramActorID = "apify/instagram-scraper"

// InstagramConnector collects Instagram posts by hashtag search. Queries
// are translated into derived hashtags because the actor has no free-text
// search mode.
type InstagramConnector struct {
	logger *logrus.Logger
}

// NewInstagramConnector creates the Instagram connector.
func NewInstagramConnector(logger *logrus.Logger) *InstagramConnector {
	if logger == nil {
		logger = logrus.New()
	}
	return &InstagramConnector{logger: logger}
}

// Platform returns the platform this connector serves.
func (c *InstagramConnector) Platform() posts.Platform {
	return posts.PlatformInstagram
}

// ActorID returns the remote actor identifier.
func (c *InstagramConnector) ActorID() string {
	return InstagramActorID
}

// Live reports that this connector performs real remote collection.
func (c *InstagramConnector) Live() bool {
	return true
}

// instagramInput is the actor's job-input payload.
type instagramInput struct {
	Hashtags                          []string           `json:"hashtags"`
	SearchType                        string             `json:"searchType"`
	ResultsLimit                      int                `json:"resultsLimit"`
	SearchLimit                       int                `json:"searchLimit"`
	AddParentData                     bool               `json:"addParentData"`
	EnhanceUserSearchWithFacebookPage bool               `json:"enhanceUserSearchWithFacebookPage"`
	IsUserTaggedFeedURL               bool               `json:"isUserTaggedFeedURL"`
	OnlyPostsWithLocation             bool               `json:"onlyPostsWithLocation"`
	LikedByInfluencer                 bool               `json:"likedByInfluencer"`
	Timeout                           int                `json:"timeout"`
	ProxyConfiguration                proxyConfiguration `json:"proxyConfiguration"`
}

// BuildInput derives hashtags from the query and assembles the actor
// payload. The timeout is forwarded in seconds.
func (c *InstagramConnector) BuildInput(query string, maxResults int, timeout time.Duration) (any, error) {
	if query == "" {
		return nil, errEmptyQuery("instagram")
	}

	hashtags := HashtagsFromQuery(query)
	if len(hashtags) == 0 {
		return nil, fmt.Errorf("platforms: no usable hashtags in query %q", query)
	}

	c.logger.WithFields(logrus.Fields{
		"method":   "BuildInput",
		"platform": posts.PlatformInstagram,
		"query":    query,
		"hashtags": hashtags,
	}).Debug("Built Instagram actor input")

	return instagramInput{
		Hashtags:           hashtags,
		SearchType:         "hashtag",
		ResultsLimit:       maxResults,
		SearchLimit:        maxResults,
		AddParentData:      true,
		Timeout:            int(timeout.Seconds()),
		ProxyConfiguration: residentialProxy,
	}, nil
}

// instagramRaw is the actor's raw record shape, reduced to the fields the
// normalized schema needs.
type instagramRaw struct {
	ID              string `json:"id"`
	ShortCode       string `json:"shortCode"`
	Caption         string `json:"caption"`
	OwnerUsername   string `json:"ownerUsername"`
	IsOwnerVerified bool   `json:"isOwnerVerified"`
	FollowersCount  int    `json:"followersCount"`
	Timestamp       string `json:"timestamp"`
	LikesCount      int    `json:"likesCount"`
	CommentsCount   int    `json:"commentsCount"`
	VideoViewCount  int    `json:"videoViewCount"`
	IsVideo         bool   `json:"isVideo"`
	DisplayURL      string `json:"displayUrl"`
	URL             string `json:"url"`
}

// MapRecord converts one raw Instagram record into the generic post shape.
func (c *InstagramConnector) MapRecord(raw json.RawMessage) (*posts.NormalizedPost, error) {
	var rec instagramRaw
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("platforms: decoding instagram record: %w", err)
	}

	id := rec.ID
	if id == "" {
		id = rec.ShortCode
	}
	if id == "" {
		return nil, fmt.Errorf("platforms: instagram record has no identifier")
	}

	url := rec.URL
	if url == "" && rec.ShortCode != "" {
		url = "https://instagram.com/p/" + rec.ShortCode
	}

	var createdAt time.Time
	if rec.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, rec.Timestamp); err == nil {
			createdAt = t
		}
	}

	return &posts.NormalizedPost{
		Platform:        posts.PlatformInstagram,
		ID:              id,
		Text:            rec.Caption,
		Author:          rec.OwnerUsername,
		AuthorVerified:  rec.IsOwnerVerified,
		AuthorFollowers: rec.FollowersCount,
		URL:             url,
		ThumbnailURL:    rec.DisplayURL,
		CreatedAt:       createdAt,
		Engagement: posts.Engagement{
			Likes:    rec.LikesCount,
			Comments: rec.CommentsCount,
			Views:    rec.VideoViewCount,
		},
		Hashtags: ExtractHashtags(rec.Caption),
	}, nil
}
