package title

import (
	"regexp"
	"strings"
)

var (
	disallowed  = regexp.MustCompile(`[^A-Za-z0-9_]`)
	underscores = regexp.MustCompile(`_+`)
)

// Sanitize makes s safe for a file name: every character outside
// [A-Za-z0-9_] becomes an underscore, runs of underscores collapse, leading
// and trailing underscores are dropped and the result is cut to maxLen.
func Sanitize(s string, maxLen int) string {
	s = disallowed.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// fallbackWords is how many leading words make up a local title
const fallbackWords = 5

// Fallback builds a title from the first words of the text
func Fallback(text string, maxLen int) string {
	words := strings.Fields(text)
	if len(words) > fallbackWords {
		words = words[:fallbackWords]
	}
	return Sanitize(strings.Join(words, "_"), maxLen)
}
