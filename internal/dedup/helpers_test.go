package dedup_test

import (
	"math/rand/v2"
	"strings"
)

var vocabulary = []string{
	"what", "is", "the", "sum", "of", "2", "3", "4", "+", "?", "apple",
	"apples", "how", "many", "does", "have", "Ali", "name", "capital", ".",
}

// corpus returns n pseudo-random question texts drawn from a small
// vocabulary so that near duplicates are common.
func corpus(n int, seed uint64) []string {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]string, n)
	for i := range out {
		words := make([]string, 3+r.IntN(5))
		for j := range words {
			words[j] = vocabulary[r.IntN(len(vocabulary))]
		}
		s := strings.Join(words, strings.Repeat(" ", 1+r.IntN(2)))
		if r.IntN(4) == 0 {
			s = "<p>" + s + "</p>"
		}
		if r.IntN(5) == 0 && i > 0 {
			s = out[r.IntN(i)]
		}
		out[i] = s
	}
	return out
}
