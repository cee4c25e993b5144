package analysis

import (
	"strings"

	"github.com/socialpulse/harvester-go/pkg/posts"
)

// The static lexicon below drives sentiment classification. Matching is
// case-insensitive substring containment, so emoji and inflected forms
// inside longer captions still count as hits.
var positiveTerms = []string{
	"bom", "ótimo", "excelente", "maravilhoso", "incrível", "perfeito", "amor", "feliz",
	"good", "great", "excellent", "amazing", "incredible", "perfect", "love", "happy",
	"❤️", "😍", "🥰", "😊", "👏", "🔥", "💯",
}

var negativeTerms = []string{
	"ruim", "péssimo", "terrível", "horrível", "ódio", "triste", "raiva",
	"bad", "terrible", "horrible", "hate", "sad", "angry",
	"😢", "😭", "😡", "👎", "💔",
}

// Classify runs the lexical sentiment lookup over the given text. Empty
// text is neutral; otherwise the side with more lexicon hits wins and an
// exact tie stays neutral.
func Classify(text string) posts.Sentiment {
	if text == "" {
		return posts.SentimentNeutral
	}

	lower := strings.ToLower(text)
	var positive, negative int
	for _, term := range positiveTerms {
		if strings.Contains(lower, term) {
			positive++
		}
	}
	for _, term := range negativeTerms {
		if strings.Contains(lower, term) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return posts.SentimentPositive
	case negative > positive:
		return posts.SentimentNegative
	}
	return posts.SentimentNeutral
}
