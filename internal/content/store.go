package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeletePlan decides, inside the deletion transaction, which of the existing
// group members to keep. It returns the ids to delete. Returning an error
// aborts the transaction.
type DeletePlan func(existing []Question) (keep Question, remove []string, err error)

// GroupDeletion is the outcome of Store.DeleteGroup.
type GroupDeletion struct {
	Preserved  *Question
	DeletedIDs []string
}

// Store is the question store the duplicate detector consumes.
type Store interface {
	// ListCandidates returns active questions matching f, oldest first.
	ListCandidates(ctx context.Context, f Filter) ([]Question, error)
	// GetQuestions returns the questions among ids that exist, oldest first.
	// Unknown ids are skipped.
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)
	// DeleteGroup loads the existing questions among ids, asks plan which to
	// remove and deletes them with their answer choices, atomically.
	DeleteGroup(ctx context.Context, ids []string, plan DeletePlan) (GroupDeletion, error)
}

// Seeder creates content. Upserts are keyed by natural keys so seeding the
// same bank twice does not duplicate subjects, levels or topics.
type Seeder interface {
	UpsertSubject(ctx context.Context, s Subject) (Subject, error)
	UpsertClassLevel(ctx context.Context, cl ClassLevel) (ClassLevel, error)
	UpsertTopic(ctx context.Context, t Topic) (Topic, error)
	CreateQuestion(ctx context.Context, q Question) (Question, error)
}

// MemoryStore is an in-memory implementation of Store and Seeder.
type MemoryStore struct {
	subjects  map[string]Subject
	levels    map[string]ClassLevel
	topics    map[string]Topic
	questions map[string]Question
	lastTime  time.Time
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subjects:  make(map[string]Subject),
		levels:    make(map[string]ClassLevel),
		topics:    make(map[string]Topic),
		questions: make(map[string]Question),
	}
}

func (s *MemoryStore) UpsertSubject(_ context.Context, sub Subject) (Subject, error) {
	if sub.Name == "" {
		return Subject{}, fmt.Errorf("subject name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subjects {
		if existing.Name == sub.Name {
			return existing, nil
		}
	}
	sub.ID = uuid.NewString()
	if sub.Slug == "" {
		sub.Slug = Slugify(sub.Name)
	}
	sub.Active = true
	sub.CreatedAt = s.nextTime(sub.CreatedAt)
	s.subjects[sub.ID] = sub
	return sub, nil
}

func (s *MemoryStore) UpsertClassLevel(_ context.Context, cl ClassLevel) (ClassLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[cl.SubjectID]; !ok {
		return ClassLevel{}, fmt.Errorf("subject not found: %s", cl.SubjectID)
	}
	for _, existing := range s.levels {
		if existing.SubjectID == cl.SubjectID && existing.LevelNumber == cl.LevelNumber {
			return existing, nil
		}
	}
	cl.ID = uuid.NewString()
	cl.Active = true
	s.levels[cl.ID] = cl
	return cl, nil
}

func (s *MemoryStore) UpsertTopic(_ context.Context, t Topic) (Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.levels[t.ClassLevelID]; !ok {
		return Topic{}, fmt.Errorf("class level not found: %s", t.ClassLevelID)
	}
	for _, existing := range s.topics {
		if existing.ClassLevelID == t.ClassLevelID && existing.Title == t.Title {
			return existing, nil
		}
	}
	t.ID = uuid.NewString()
	t.Active = true
	s.topics[t.ID] = t
	return t, nil
}

// CreateQuestion stores q as an active question. A zero CreatedAt is set to a
// timestamp strictly after every question created before it.
func (s *MemoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[q.TopicID]; !ok {
		return Question{}, fmt.Errorf("topic not found: %s", q.TopicID)
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Type == "" {
		q.Type = TypeMultipleChoice
	}
	q.Active = true
	q.CreatedAt = s.nextTime(q.CreatedAt)
	for i := range q.Choices {
		if q.Choices[i].ID == "" {
			q.Choices[i].ID = uuid.NewString()
		}
	}
	s.questions[q.ID] = q
	return s.hydrate(q), nil
}

// SetActive toggles a question's active flag.
func (s *MemoryStore) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return fmt.Errorf("question not found: %s", id)
	}
	q.Active = active
	s.questions[id] = q
	return nil
}

// Exists reports whether a question with id is stored.
func (s *MemoryStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.questions[id]
	return ok
}

func (s *MemoryStore) ListCandidates(_ context.Context, f Filter) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Question
	for _, q := range s.questions {
		if !q.Active {
			continue
		}
		q = s.hydrate(q)
		if !f.Matches(q) {
			continue
		}
		out = append(out, q)
	}
	SortOldestFirst(out)
	return out, nil
}

func (s *MemoryStore) GetQuestions(_ context.Context, ids []string) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existing(ids), nil
}

func (s *MemoryStore) DeleteGroup(_ context.Context, ids []string, plan DeletePlan) (GroupDeletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.existing(ids)
	if len(existing) == 0 {
		return GroupDeletion{}, nil
	}

	keep, remove, err := plan(existing)
	if err != nil {
		return GroupDeletion{}, err
	}

	var deleted []string
	for _, id := range remove {
		if id == keep.ID {
			continue
		}
		if _, ok := s.questions[id]; ok {
			delete(s.questions, id)
			deleted = append(deleted, id)
		}
	}
	return GroupDeletion{Preserved: &keep, DeletedIDs: deleted}, nil
}

func (s *MemoryStore) existing(ids []string) []Question {
	seen := make(map[string]bool, len(ids))
	var out []Question
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if q, ok := s.questions[id]; ok {
			out = append(out, s.hydrate(q))
		}
	}
	SortOldestFirst(out)
	return out
}

// hydrate fills the denormalised topic/level/subject fields. Callers hold mu.
func (s *MemoryStore) hydrate(q Question) Question {
	t, ok := s.topics[q.TopicID]
	if !ok {
		return q
	}
	q.TopicTitle = t.Title
	if cl, ok := s.levels[t.ClassLevelID]; ok {
		q.ClassLevel = cl.LevelNumber
		q.SubjectID = cl.SubjectID
		q.SubjectName = s.subjects[cl.SubjectID].Name
	}
	return q
}

// nextTime returns want, or a strictly increasing timestamp when want is zero.
// Timestamps are truncated to microseconds like PostgreSQL timestamptz.
func (s *MemoryStore) nextTime(want time.Time) time.Time {
	if !want.IsZero() {
		return want
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(s.lastTime) {
		now = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = now
	return now
}

// SortOldestFirst orders questions by creation time, then id.
func SortOldestFirst(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.Before(qs[j].CreatedAt)
		}
		return qs[i].ID < qs[j].ID
	})
}
