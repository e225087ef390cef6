package dedup

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/mentora/internal/content"
)

// ErrVerificationFailed is returned when a group member no longer resembles
// the question that would be kept.
var ErrVerificationFailed = errors.New("group members are not duplicates of the preserved question")

// KeepOldest returns a deletion plan that preserves the earliest created
// question (smallest id on ties) and removes every other member.
//
// When verifyThreshold is positive, each member to be removed must score at
// least verifyThreshold against the preserved question, otherwise the plan
// fails with ErrVerificationFailed and nothing is deleted.
func KeepOldest(verifyThreshold float64) content.DeletePlan {
	return func(existing []content.Question) (content.Question, []string, error) {
		if len(existing) == 0 {
			return content.Question{}, nil, nil
		}
		qs := append([]content.Question(nil), existing...)
		content.SortOldestFirst(qs)

		keep := qs[0]
		remove := make([]string, 0, len(qs)-1)
		var mismatched []string
		for _, q := range qs[1:] {
			if verifyThreshold > 0 && Similarity(keep.Text, q.Text) < verifyThreshold {
				mismatched = append(mismatched, q.ID)
			}
			remove = append(remove, q.ID)
		}
		if len(mismatched) > 0 {
			return content.Question{}, nil, fmt.Errorf("%w: %v below %.2f against %s",
				ErrVerificationFailed, mismatched, verifyThreshold, keep.ID)
		}
		return keep, remove, nil
	}
}
