package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Bank is a question bank file: one subject and class level with its topics.
type Bank struct {
	Subject    string      `yaml:"subject" validate:"required,max=100"`
	ClassLevel BankLevel   `yaml:"class_level" validate:"required"`
	Topics     []BankTopic `yaml:"topics" validate:"required,min=1,dive"`

	path string
}

// BankLevel identifies the class level of a bank.
type BankLevel struct {
	Name        string `yaml:"name" validate:"required,max=50"`
	LevelNumber int    `yaml:"level_number" validate:"required,min=1,max=20"`
}

// BankTopic is a topic and its questions.
type BankTopic struct {
	Title     string         `yaml:"title" validate:"required,max=200"`
	Questions []BankQuestion `yaml:"questions" validate:"dive"`
}

// BankQuestion is a single question in a bank.
type BankQuestion struct {
	Text          string       `yaml:"text" validate:"required"`
	Type          string       `yaml:"type" validate:"omitempty,oneof=multiple_choice fill_blank true_false short_answer"`
	CorrectAnswer string       `yaml:"correct_answer" validate:"required"`
	Choices       []BankChoice `yaml:"choices" validate:"dive"`
}

// BankChoice is an answer choice.
type BankChoice struct {
	Text    string `yaml:"text" validate:"required"`
	Correct bool   `yaml:"correct"`
}

// Path returns the file the bank was loaded from.
func (b Bank) Path() string {
	return b.path
}

// Loader loads question banks from the filesystem.
type Loader struct {
	rootDir  string
	banks    []Bank
	validate *validator.Validate
	mu       sync.RWMutex
}

// NewLoader creates a new bank loader and loads every bank under rootDir.
// Files that fail to parse or validate are skipped with a warning.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:  rootDir,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading question banks: %w", err)
	}

	slog.Info("question banks loaded", "banks", len(l.banks), "questions", l.QuestionCount())
	return l, nil
}

// Banks returns all loaded banks ordered by path.
func (l *Loader) Banks() []Bank {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Bank(nil), l.banks...)
}

// QuestionCount returns the number of questions across all banks.
func (l *Loader) QuestionCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, b := range l.banks {
		for _, t := range b.Topics {
			n += len(t.Questions)
		}
	}
	return n
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Banks     int
	Topics    int
	Questions int
}

// Seed writes every loaded bank into s.
func (l *Loader) Seed(ctx context.Context, s Seeder) (SeedResult, error) {
	var res SeedResult
	for _, b := range l.Banks() {
		subject, err := s.UpsertSubject(ctx, Subject{Name: b.Subject})
		if err != nil {
			return res, fmt.Errorf("seeding %s: %w", b.path, err)
		}
		level, err := s.UpsertClassLevel(ctx, ClassLevel{
			SubjectID:   subject.ID,
			Name:        b.ClassLevel.Name,
			LevelNumber: b.ClassLevel.LevelNumber,
		})
		if err != nil {
			return res, fmt.Errorf("seeding %s: %w", b.path, err)
		}

		for _, bt := range b.Topics {
			topic, err := s.UpsertTopic(ctx, Topic{ClassLevelID: level.ID, Title: bt.Title})
			if err != nil {
				return res, fmt.Errorf("seeding %s: %w", b.path, err)
			}
			res.Topics++

			for _, bq := range bt.Questions {
				q := Question{
					TopicID:       topic.ID,
					Text:          bq.Text,
					Type:          bq.Type,
					CorrectAnswer: bq.CorrectAnswer,
				}
				for _, c := range bq.Choices {
					q.Choices = append(q.Choices, AnswerChoice{Text: c.Text, IsCorrect: c.Correct})
				}
				if _, err := s.CreateQuestion(ctx, q); err != nil {
					return res, fmt.Errorf("seeding %s: %w", b.path, err)
				}
				res.Questions++
			}
		}
		res.Banks++
	}

	slog.Info("question banks seeded",
		"banks", res.Banks,
		"topics", res.Topics,
		"questions", res.Questions,
	)
	return res, nil
}

func (l *Loader) loadAll() error {
	err := filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadBank(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	sort.Slice(l.banks, func(i, j int) bool { return l.banks[i].path < l.banks[j].path })
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadBank(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		slog.Warn("skipping invalid bank YAML", "path", path, "error", err)
		return nil
	}

	if bank.Subject == "" && len(bank.Topics) == 0 {
		return nil // Not a bank file
	}

	if err := l.validate.Struct(bank); err != nil {
		slog.Warn("skipping invalid bank", "path", path, "error", describeValidation(err))
		return nil
	}

	bank.path = path
	l.mu.Lock()
	l.banks = append(l.banks, bank)
	l.mu.Unlock()

	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
