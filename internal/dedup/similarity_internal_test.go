package dedup

import "testing"

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"what is 2 + 2?", []string{"what", "is", "2", "+", "2", "?"}},
		{"what is 2+2 ?", []string{"what", "is", "2", "+", "2", "?"}},
		{"x=10.5", []string{"x", "=", "10", ".", "5"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q) = %q, want %q", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestUpperBound_NeverBelowScore(t *testing.T) {
	texts := []string{
		"", "a", "what is 2 + 2?", "what is 2+2 ?", "what is 3 + 3?",
		"how many apples does ali have?", "name the capital of france.",
		"what is the sum of 2 and 3?", "2", "+ + +",
	}
	for _, a := range texts {
		for _, b := range texts {
			ta, tb := prepare(a), prepare(b)
			if s, ub := score(ta, tb), upperBound(ta, tb); s > ub {
				t.Errorf("score(%q, %q) = %v exceeds bound %v", a, b, s, ub)
			}
		}
	}
}
