// Package content holds the subject/class level/topic/question model and the
// stores that persist it.
package content

import (
	"strings"
	"time"
)

// Question types accepted by the content store.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeFillBlank      = "fill_blank"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
)

// Subject is a top-level subject such as Mathematics.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ClassLevel is a grade within a subject (e.g., Grade 5).
type ClassLevel struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	Name        string `json:"name"`
	LevelNumber int    `json:"level_number"`
	Active      bool   `json:"is_active"`
}

// Topic groups questions within a class level.
type Topic struct {
	ID           string `json:"id"`
	ClassLevelID string `json:"class_level_id"`
	Title        string `json:"title"`
	Active       bool   `json:"is_active"`
}

// AnswerChoice is an option of a multiple choice question.
type AnswerChoice struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a single quiz item. The Topic* and Subject* fields are
// denormalised on read for display and filtering.
type Question struct {
	ID            string         `json:"id"`
	TopicID       string         `json:"topic_id"`
	Text          string         `json:"text"`
	Type          string         `json:"question_type"`
	CorrectAnswer string         `json:"correct_answer"`
	Active        bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	Choices       []AnswerChoice `json:"choices,omitempty"`

	TopicTitle  string `json:"topic,omitempty"`
	ClassLevel  int    `json:"class_level,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	SubjectName string `json:"subject,omitempty"`
}

// Filter narrows the candidate set for duplicate detection. Zero values
// mean "no filter".
type Filter struct {
	ClassLevel *int
	SubjectID  string
}

// Matches reports whether q passes the filter.
func (f Filter) Matches(q Question) bool {
	if f.ClassLevel != nil && q.ClassLevel != *f.ClassLevel {
		return false
	}
	if f.SubjectID != "" && q.SubjectID != f.SubjectID {
		return false
	}
	return true
}

// Slugify turns a display name into a URL slug ("Life Skills" -> "life-skills").
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
