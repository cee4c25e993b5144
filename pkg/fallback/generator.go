// Package fallback produces deterministic synthetic platform results in the
// same shape as live ones. The scheduler substitutes them whenever live
// collection does not succeed within a task's budget, so callers always
// receive a usable result set.
package fallback

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/analysis"
	"github.com/socialpulse/harvester-go/pkg/posts"
)

// baseTime anchors synthetic timestamps. Records step back one hour per
// index so ordering by time matches ordering by index.
var baseTime = time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)

// profile holds the per-platform shape of synthetic records.
type profile struct {
	author    string
	textTmpl  string
	urlTmpl   string
	hashtags  []string
	likes     int
	comments  int
	shares    int
	views     int
	followers int
}

var profiles = map[posts.Platform]profile{
	posts.PlatformInstagram: {
		author:    "influencer%d",
		textTmpl:  "Transformando o mercado de %s! Veja como esta inovação está mudando tudo! #%s #inovação #brasil",
		urlTmpl:   "https://instagram.com/p/%08x%d/",
		hashtags:  []string{"inovação", "brasil", "negócios"},
		likes:     250,
		comments:  18,
		views:     1500,
		followers: 5000,
	},
	posts.PlatformFacebook: {
		author:    "Especialista %d",
		textTmpl:  "Compartilhando insights sobre %s. O mercado está em constante evolução e precisamos acompanhar as tendências. #%s #negócios #inovação",
		urlTmpl:   "https://www.facebook.com/share/p/%08x%d/",
		hashtags:  []string{"negócios", "inovação"},
		likes:     45,
		comments:  12,
		shares:    8,
		followers: 2000,
	},
}

var defaultProfile = profile{
	author:    "analista%d",
	textTmpl:  "Discussão sobre %s e suas tendências de mercado. #%s",
	urlTmpl:   "https://example.com/posts/%08x%d",
	likes:     35,
	comments:  8,
	shares:    5,
	followers: 1000,
}

// sentimentCycle assigns sentiments by record index.
var sentimentCycle = []posts.Sentiment{
	posts.SentimentPositive,
	posts.SentimentNegative,
	posts.SentimentNeutral,
}

// Generator builds synthetic platform results. Output is a pure function of
// (platform, query, index): repeat calls with the same arguments produce
// identical sequences, and engagement counters are monotonically
// non-increasing by index so score-sorted output is stable.
type Generator struct {
	logger *logrus.Logger
}

// NewGenerator creates a Generator logging to the given logger.
func NewGenerator(logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Generator{logger: logger}
}

// Generate produces maxResults synthetic records for the platform and
// query. It never blocks and never fails; maxResults <= 0 yields an empty
// record set. The result is marked with the fallback data source and
// Success stays false, since fallback substitution is a degraded outcome.
func (g *Generator) Generate(platform posts.Platform, query string, maxResults int) *posts.PlatformResult {
	g.logger.WithFields(logrus.Fields{
		"method":      "Generate",
		"platform":    platform,
		"query":       query,
		"max_results": maxResults,
	}).Debug("Generating fallback records")

	p, ok := profiles[platform]
	if !ok {
		p = defaultProfile
	}
	seed := querySeed(platform, query)

	records := make([]posts.NormalizedPost, 0, max(maxResults, 0))
	for i := 0; i < maxResults; i++ {
		// scale shrinks with the index, keeping counters non-increasing
		scale := maxResults - i
		post := posts.NormalizedPost{
			Platform:        platform,
			ID:              fmt.Sprintf("fallback-%s-%08x-%d", platform, seed, i),
			Text:            fmt.Sprintf(p.textTmpl, query, query),
			Author:          fmt.Sprintf(p.author, i+1),
			AuthorVerified:  i%4 == 0,
			AuthorFollowers: p.followers * (i + 1),
			URL:             fmt.Sprintf(p.urlTmpl, seed, i+1),
			CreatedAt:       baseTime.Add(-time.Duration(i) * time.Hour),
			Engagement: posts.Engagement{
				Likes:    p.likes * scale,
				Comments: p.comments * scale,
				Shares:   p.shares * scale,
				Views:    p.views * scale,
			},
			Sentiment: sentimentCycle[i%len(sentimentCycle)],
			Hashtags:  append([]string{query}, p.hashtags...),
		}
		post.ViralityScore = analysis.Score(post)
		records = append(records, post)
	}

	return &posts.PlatformResult{
		Platform:   platform,
		Success:    false,
		Records:    records,
		DataSource: posts.DataSourceFallback,
	}
}

// GenerateEmpty produces the tier-timeout variant: an empty record set
// marked fallback_empty, signaling that the whole tier timed out before the
// task resolved rather than that this task failed on its own.
func (g *Generator) GenerateEmpty(platform posts.Platform, query string) *posts.PlatformResult {
	g.logger.WithFields(logrus.Fields{
		"method":   "GenerateEmpty",
		"platform": platform,
		"query":    query,
	}).Debug("Generating empty fallback result")

	return &posts.PlatformResult{
		Platform:   platform,
		Success:    false,
		Records:    []posts.NormalizedPost{},
		DataSource: posts.DataSourceFallbackEmpty,
	}
}

// querySeed derives a stable per-(platform,query) seed for IDs and URLs.
func querySeed(platform posts.Platform, query string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(platform))
	h.Write([]byte{0})
	h.Write([]byte(query))
	return h.Sum32()
}
