// Package dedup finds and removes near-duplicate quiz questions.
package dedup

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Clean normalises question text for comparison: HTML tags are removed,
// the text is put in NFKC form, whitespace runs collapse to a single space,
// and the result is trimmed and lowercased. Punctuation is left alone, so
// "What is 2+2 ?" cleans to "what is 2+2 ?".
func Clean(text string) string {
	if text == "" {
		return ""
	}
	s := tagPattern.ReplaceAllString(text, "")
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
