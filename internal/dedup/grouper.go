package dedup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/p-n-ai/mentora/internal/content"
)

var (
	// ErrInvalidThreshold is returned when a similarity threshold is outside (0,1].
	ErrInvalidThreshold = errors.New("similarity threshold must be in (0,1]")
	// ErrInvalidFilter is returned for a malformed candidate filter.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Group is a set of questions judged duplicates of each other.
type Group struct {
	// ID is the id of the oldest member.
	ID        string             `json:"group_id"`
	Questions []content.Question `json:"questions"`
	// Score is the lowest similarity among the pairs that joined the group.
	Score float64 `json:"score"`
}

// Progress reports how far a detection run has got.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// ProgressFunc receives progress updates. It is called from the detecting
// goroutine and must not block for long.
type ProgressFunc func(Progress)

// Detection stages.
const (
	StagePreprocessing = "preprocessing"
	StageComparing     = "comparing"
	StageFinalizing    = "finalizing"
	StageComplete      = "complete"
)

// ValidateThreshold checks that t is in (0,1].
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t <= 0 || t > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}

// ValidateFilter checks that the subject id, when set, is a UUID and the
// class level is not negative.
func ValidateFilter(f content.Filter) error {
	if f.SubjectID != "" {
		if _, err := uuid.Parse(f.SubjectID); err != nil {
			return fmt.Errorf("%w: subject %q is not a UUID", ErrInvalidFilter, f.SubjectID)
		}
	}
	if f.ClassLevel != nil && *f.ClassLevel < 0 {
		return fmt.Errorf("%w: class level %d is negative", ErrInvalidFilter, *f.ClassLevel)
	}
	return nil
}

// bucket is the set of candidates sharing one cleaned text.
type bucket struct {
	text
	members []int // indexes into the sorted candidates
}

// Detect clusters candidates into duplicate groups. Two questions join when
// their similarity is at least threshold, and membership is transitive.
// Groups with a single member are dropped. Groups are ordered by size,
// largest first, then by the age of their oldest member.
func Detect(ctx context.Context, candidates []content.Question, threshold float64, progress ProgressFunc) ([]Group, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	report := func(stage string, pct int) {
		if progress != nil {
			progress(Progress{Stage: stage, Percent: pct})
		}
	}
	if len(candidates) == 0 {
		report(StageComplete, 100)
		return []Group{}, nil
	}

	qs := append([]content.Question(nil), candidates...)
	content.SortOldestFirst(qs)

	// Identical cleaned texts always score 1, so they share a bucket and
	// only one representative per bucket is compared.
	report(StagePreprocessing, 0)
	var buckets []*bucket
	byText := make(map[string]*bucket, len(qs))
	for i, q := range qs {
		c := Clean(q.Text)
		b, ok := byText[c]
		if !ok {
			b = &bucket{text: prepare(c)}
			byText[c] = b
			buckets = append(buckets, b)
		}
		b.members = append(b.members, i)
	}
	report(StagePreprocessing, 30)

	uf := newUnionFind(len(buckets))
	minScore := make([]float64, len(buckets))
	for i := range minScore {
		minScore[i] = 1
	}

	n := len(buckets)
	step := max(n/60, 1)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i%step == 0 {
			report(StageComparing, 30+60*i/n)
		}
		for j := i + 1; j < n; j++ {
			if upperBound(buckets[i].text, buckets[j].text) < threshold {
				continue
			}
			s := score(buckets[i].text, buckets[j].text)
			if s < threshold {
				continue
			}
			uf.union(i, j)
			minScore[i] = math.Min(minScore[i], s)
			minScore[j] = math.Min(minScore[j], s)
		}
	}

	report(StageFinalizing, 95)
	type cluster struct {
		members []int
		score   float64
	}
	clusters := make(map[int]*cluster)
	var order []int
	for i, b := range buckets {
		root := uf.find(i)
		c, ok := clusters[root]
		if !ok {
			c = &cluster{score: 1}
			clusters[root] = c
			order = append(order, root)
		}
		c.members = append(c.members, b.members...)
		c.score = math.Min(c.score, minScore[i])
	}

	groups := make([]Group, 0, len(order))
	for _, root := range order {
		c := clusters[root]
		if len(c.members) < 2 {
			continue
		}
		sort.Ints(c.members)
		members := make([]content.Question, len(c.members))
		for k, idx := range c.members {
			members[k] = qs[idx]
		}
		groups = append(groups, Group{
			ID:        members[0].ID,
			Questions: members,
			Score:     c.score,
		})
	}

	// order follows the first bucket of each cluster, which follows the
	// oldest member, so a stable sort keeps older groups first on ties.
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Questions) > len(groups[j].Questions)
	})

	report(StageComplete, 100)
	return groups, nil
}

// TotalDuplicates counts the questions across groups.
func TotalDuplicates(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Questions)
	}
	return n
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
