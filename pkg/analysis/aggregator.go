// Package analysis normalizes raw platform records into the shared post
// schema, scores engagement virality per platform and summarizes sentiment
// across heterogeneous per-platform results.
package analysis

import (
	"encoding/json"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// RecordMapper converts one raw platform record into the generic post
// shape. Each platform connector supplies its own mapper; mappers are pure
// data transforms and never perform I/O.
type RecordMapper func(raw json.RawMessage) (*posts.NormalizedPost, error)

// Aggregator turns raw per-platform records into normalized, scored posts
// and produces the cross-platform sentiment summary.
type Aggregator struct {
	logger *logrus.Logger
}

// NewAggregator creates an Aggregator logging to the given logger.
func NewAggregator(logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{logger: logger}
}

// Normalize maps each raw record through the platform's mapper, classifies
// sentiment for records the mapper left unclassified and fills in the
// virality score. Records the mapper rejects are logged and skipped rather
// than failing the whole batch.
func (a *Aggregator) Normalize(platform posts.Platform, raws []json.RawMessage, mapper RecordMapper) []posts.NormalizedPost {
	log := a.logger.WithFields(logrus.Fields{
		"method":    "Normalize",
		"platform":  platform,
		"raw_count": len(raws),
	})

	normalized := make([]posts.NormalizedPost, 0, len(raws))
	for i, raw := range raws {
		post, err := mapper(raw)
		if err != nil {
			log.WithError(err).WithField("record_index", i).Warn("Skipping unmappable record")
			continue
		}
		if post == nil {
			continue
		}

		post.Platform = platform
		if post.Sentiment == "" {
			post.Sentiment = Classify(post.Text)
		}
		post.ViralityScore = Score(*post)
		normalized = append(normalized, *post)
	}

	log.WithField("normalized_count", len(normalized)).Debug("Normalized raw records")
	return normalized
}

// SummarizeSentiment tallies sentiment per platform and across all
// platforms. The dominant sentiment of each tally is the plurality winner;
// an exact positive/negative tie is reported neutral. Confidence is
// |positive - negative| / total * 100, rounded to one decimal.
func (a *Aggregator) SummarizeSentiment(results map[posts.Platform]posts.PlatformResult) posts.SentimentSummary {
	summary := posts.SentimentSummary{
		ByPlatform: make(map[posts.Platform]posts.SentimentCounts, len(results)),
	}

	var overall posts.SentimentCounts
	for platform, result := range results {
		var counts posts.SentimentCounts
		for _, post := range result.Records {
			switch post.Sentiment {
			case posts.SentimentPositive:
				counts.Positive++
			case posts.SentimentNegative:
				counts.Negative++
			default:
				counts.Neutral++
			}
		}
		counts.Total = len(result.Records)
		finalizeCounts(&counts)
		summary.ByPlatform[platform] = counts

		overall.Positive += counts.Positive
		overall.Negative += counts.Negative
		overall.Neutral += counts.Neutral
		overall.Total += counts.Total
	}

	finalizeCounts(&overall)
	summary.Overall = overall

	a.logger.WithFields(logrus.Fields{
		"method":      "SummarizeSentiment",
		"platforms":   len(results),
		"total_posts": overall.Total,
		"dominant":    overall.Dominant,
	}).Debug("Summarized sentiment")

	return summary
}

func finalizeCounts(c *posts.SentimentCounts) {
	c.Dominant = dominantSentiment(c)
	if c.Total > 0 {
		c.Confidence = math.Round(math.Abs(float64(c.Positive-c.Negative))/float64(c.Total)*100*10) / 10
	}
}

func dominantSentiment(c *posts.SentimentCounts) posts.Sentiment {
	switch {
	case c.Positive > c.Negative && c.Positive > c.Neutral:
		return posts.SentimentPositive
	case c.Negative > c.Positive && c.Negative > c.Neutral:
		return posts.SentimentNegative
	}
	return posts.SentimentNeutral
}
