package dedup_test

import (
	"testing"

	"github.com/p-n-ai/mentora/internal/dedup"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"html tags", "<p>What is 2 + 2?</p>", "what is 2 + 2?"},
		{"whitespace runs", "What   is    2 + 2?", "what is 2 + 2?"},
		{"punctuation untouched", "What is 2+2 ?", "what is 2+2 ?"},
		{"tabs and newlines", "What\tis\n\n2 + 2?", "what is 2 + 2?"},
		{"trim", "   What is 2 + 2?  ", "what is 2 + 2?"},
		{"nested markup", "<div><b>Name</b> the <i>capital</i></div>", "name the capital"},
		{"full-width digits", "What is ２ + ２?", "what is 2 + 2?"},
		{"empty", "", ""},
		{"only tags", "<br/><hr>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dedup.Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	for _, s := range corpus(200, 1) {
		once := dedup.Clean(s)
		if twice := dedup.Clean(once); twice != once {
			t.Errorf("Clean(Clean(%q)) = %q, want %q", s, twice, once)
		}
	}
}
