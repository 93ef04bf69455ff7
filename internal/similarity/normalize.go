// Package similarity turns free-form work item text into comparable strings
// and scores how alike two of them are.
package similarity

import (
	"html"
	"regexp"
	"strings"
)

// tagPattern matches markup tags, including ones spanning lines.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// punctuation is the set of characters dropped before comparison.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

// Normalize strips markup and punctuation, collapses whitespace and lowercases.
// Empty input yields an empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Entities first so that escaped markup is stripped as markup
	s := html.UnescapeString(text)
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)

	// Fields splits on any unicode whitespace, which also trims both ends
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
