package dedup

import (
	"unicode"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// text is a cleaned question prepared for matching.
type text struct {
	cleaned string
	chars   []string
	tokens  []string
}

func prepare(cleaned string) text {
	chars := make([]string, 0, utf8.RuneCountInString(cleaned))
	for _, r := range cleaned {
		chars = append(chars, string(r))
	}
	return text{cleaned: cleaned, chars: chars, tokens: tokenize(cleaned)}
}

// tokenize splits s into runs of letters and digits and single punctuation
// marks. Whitespace only separates tokens, so "2+2 ?" and "2 + 2?" yield the
// same sequence.
func tokenize(s string) []string {
	var tokens []string
	start := -1
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
		if word {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, s[start:i])
			start = -1
		}
		if !unicode.IsSpace(r) {
			tokens = append(tokens, string(r))
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// Similarity scores how alike two question texts are, in [0,1]. Both inputs
// are cleaned first. The score is the mean of a character-level and a
// token-level matching-blocks ratio; identical cleaned texts score exactly 1
// and Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	return score(prepare(Clean(a)), prepare(Clean(b)))
}

func score(a, b text) float64 {
	if a.cleaned == b.cleaned {
		return 1
	}
	// The matcher is not symmetric; fix the argument order.
	if a.cleaned > b.cleaned {
		a, b = b, a
	}
	return (ratio(a.chars, b.chars) + ratio(a.tokens, b.tokens)) / 2
}

func ratio(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	return m.Ratio()
}

// upperBound is the highest score a and b could reach given only their
// lengths. It is computed the same way as score so pruning on it is exact.
func upperBound(a, b text) float64 {
	return (ratioBound(len(a.chars), len(b.chars)) + ratioBound(len(a.tokens), len(b.tokens))) / 2
}

func ratioBound(la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	return 2.0 * float64(min(la, lb)) / float64(la+lb)
}
