package content_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/mentora/internal/content"
)

func TestLoader_LoadBanks(t *testing.T) {
	dir := setupTestBanks(t)

	loader, err := content.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	banks := loader.Banks()
	if len(banks) != 1 {
		t.Fatalf("Banks() = %d, want 1", len(banks))
	}
	if banks[0].Subject != "Mathematics" {
		t.Errorf("Subject = %q, want Mathematics", banks[0].Subject)
	}
	if banks[0].ClassLevel.LevelNumber != 5 {
		t.Errorf("LevelNumber = %d, want 5", banks[0].ClassLevel.LevelNumber)
	}
	if got := loader.QuestionCount(); got != 4 {
		t.Errorf("QuestionCount() = %d, want 4", got)
	}
}

func TestLoader_SkipsInvalidBanks(t *testing.T) {
	dir := setupTestBanks(t)

	// Missing correct_answer fails validation.
	os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(`
subject: Science
class_level:
  name: Grade 6
  level_number: 6
topics:
  - title: Plants
    questions:
      - text: "What do plants need?"
`), 0o644)
	// Not YAML at all.
	os.WriteFile(filepath.Join(dir, "garbage.yml"), []byte("subject: [unterminated"), 0o644)
	// Unknown question type.
	os.WriteFile(filepath.Join(dir, "badtype.yaml"), []byte(`
subject: Science
class_level:
  name: Grade 6
  level_number: 6
topics:
  - title: Plants
    questions:
      - text: "What do plants need?"
        type: essay
        correct_answer: "Light"
`), 0o644)
	// Unrelated YAML is ignored silently.
	os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("theme: dark\n"), 0o644)

	loader, err := content.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(loader.Banks()); got != 1 {
		t.Errorf("Banks() = %d, want 1 (invalid banks should be skipped)", got)
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := content.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if len(loader.Banks()) != 0 {
		t.Errorf("Banks() = %d, want 0 for empty dir", len(loader.Banks()))
	}
}

func TestLoader_Seed(t *testing.T) {
	dir := setupTestBanks(t)
	loader, err := content.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	store := content.NewMemoryStore()
	ctx := context.Background()

	res, err := loader.Seed(ctx, store)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if res.Banks != 1 || res.Topics != 2 || res.Questions != 4 {
		t.Errorf("Seed() = %+v, want 1 bank, 2 topics, 4 questions", res)
	}

	qs, err := store.ListCandidates(ctx, content.Filter{})
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}
	if len(qs) != 4 {
		t.Fatalf("ListCandidates() = %d, want 4", len(qs))
	}
	if qs[0].Text != "What is 2 + 2?" {
		t.Errorf("first question = %q, want bank order preserved", qs[0].Text)
	}
	if len(qs[0].Choices) != 3 {
		t.Errorf("choices = %d, want 3", len(qs[0].Choices))
	}
	if qs[3].Type != content.TypeShortAnswer {
		t.Errorf("Type = %q, want %q", qs[3].Type, content.TypeShortAnswer)
	}

	// Seeding again reuses subjects and topics but adds questions.
	if _, err := loader.Seed(ctx, store); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	qs, _ = store.ListCandidates(ctx, content.Filter{})
	if len(qs) != 8 {
		t.Errorf("ListCandidates() after reseed = %d, want 8", len(qs))
	}
	topics := map[string]bool{}
	for _, q := range qs {
		topics[q.TopicID] = true
	}
	if len(topics) != 2 {
		t.Errorf("distinct topics = %d, want 2", len(topics))
	}
}

func setupTestBanks(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	bankDir := filepath.Join(dir, "mathematics")
	os.MkdirAll(bankDir, 0o755)

	os.WriteFile(filepath.Join(bankDir, "grade-5.yaml"), []byte(`
subject: Mathematics
class_level:
  name: Grade 5
  level_number: 5
topics:
  - title: Addition and Subtraction
    questions:
      - text: "What is 2 + 2?"
        correct_answer: "4"
        choices:
          - text: "3"
          - text: "4"
            correct: true
          - text: "5"
      - text: "What is 2+2?"
        correct_answer: "4"
      - text: "What is 3 + 3?"
        correct_answer: "6"
  - title: Fractions
    questions:
      - text: "Explain what a fraction represents."
        type: short_answer
        correct_answer: "A part of a whole"
`), 0o644)

	return dir
}
