package analysis

import (
	"math"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// engagementWeights are the per-platform multipliers applied to likes,
// comments, shares and views when computing the virality base score.
type engagementWeights struct {
	likes    float64
	comments float64
	shares   float64
	views    float64
}

// platformWeights tunes the base score per platform. Shares dominate on
// Facebook; comments and video views carry more weight on Instagram.
var platformWeights = map[posts.Platform]engagementWeights{
	posts.PlatformInstagram: {likes: 1.0, comments: 2.0, shares: 3.0, views: 0.1},
	posts.PlatformFacebook:  {likes: 0.8, comments: 1.5, shares: 4.0, views: 0.05},
}

// defaultWeights applies to platforms without a tuned profile.
var defaultWeights = engagementWeights{likes: 1.0, comments: 1.5, shares: 2.0, views: 0.1}

// Score computes the virality score of one post. The base is the
// platform-weighted sum of the engagement counters; when the author's
// follower count is known the result blends absolute engagement (70%) with
// follower-normalized engagement (30%). The blended value is scaled down by
// 100, clamped to [0,100] and rounded to two decimals.
func Score(post posts.NormalizedPost) float64 {
	weights, ok := platformWeights[post.Platform]
	if !ok {
		weights = defaultWeights
	}

	e := post.Engagement
	base := float64(e.Likes)*weights.likes +
		float64(e.Comments)*weights.comments +
		float64(e.Shares)*weights.shares +
		float64(e.Views)*weights.views

	score := base
	if post.AuthorFollowers > 0 {
		engagementRate := base / float64(post.AuthorFollowers)
		score = base*0.7 + engagementRate*1000*0.3
	}

	normalized := math.Min(100, math.Max(0, score/100))
	return math.Round(normalized*100) / 100
}
