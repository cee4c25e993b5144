package platforms

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxQueryHashtags caps how many derived hashtags are sent to the actor.
const maxQueryHashtags = 5

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// HashtagsFromQuery derives actor search hashtags from a free-form query.
// The query is lowercased, commas and periods become spaces, and every word
// of three or more characters turns into a hashtag. If the whole query with
// spaces removed fits in 30 characters it is appended as one joined
// hashtag. At most five hashtags are returned, prefix included.
func HashtagsFromQuery(query string) []string {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(query))

	var hashtags []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) >= 3 {
			hashtags = append(hashtags, "#"+word)
		}
	}

	joined := strings.ReplaceAll(query, " ", "")
	if utf8.RuneCountInString(joined) <= 30 && joined != "" {
		hashtags = append(hashtags, "#"+strings.ToLower(joined))
	}

	if len(hashtags) > maxQueryHashtags {
		hashtags = hashtags[:maxQueryHashtags]
	}
	return hashtags
}

// ExtractHashtags pulls hashtags out of post text, lowercased and without
// the # prefix.
func ExtractHashtags(text string) []string {
	if text == "" {
		return nil
	}

	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	hashtags := make([]string, 0, len(matches))
	for _, m := range matches {
		hashtags = append(hashtags, strings.ToLower(m[1]))
	}
	return hashtags
}

// errEmptyQuery builds the shared validation error for blank queries.
func errEmptyQuery(platform string) error {
	return fmt.Errorf("platforms: %s query is required", platform)
}
