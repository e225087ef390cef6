package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 10 * time.Second

const questionColumns = `q.id::text, q.topic_id::text, q.question_text, q.question_type, q.correct_answer,
		q.is_active, q.created_at, t.title, cl.level_number, s.id::text, s.name`

const questionJoins = `FROM questions q
		JOIN topics t ON t.id = q.topic_id
		JOIN class_levels cl ON cl.id = t.class_level_id
		JOIN subjects s ON s.id = cl.subject_id`

// PostgresStore is a PostgreSQL-backed Store and Seeder.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed content store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, f Filter) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var subjectID any
	if f.SubjectID != "" {
		if _, err := uuid.Parse(f.SubjectID); err != nil {
			return nil, fmt.Errorf("subject id %q: %w", f.SubjectID, err)
		}
		subjectID = f.SubjectID
	}
	var level any
	if f.ClassLevel != nil {
		level = *f.ClassLevel
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 `+questionJoins+`
		 WHERE q.is_active
		   AND ($1::int IS NULL OR cl.level_number = $1::int)
		   AND ($2::uuid IS NULL OR s.id = $2::uuid)
		 ORDER BY q.created_at ASC, q.id ASC`,
		level,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return collectQuestions(rows)
}

func (s *PostgresStore) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	valid := validIDs(ids)
	if len(valid) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+`
		 `+questionJoins+`
		 WHERE q.id = ANY($1::uuid[])
		 ORDER BY q.created_at ASC, q.id ASC`,
		valid,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	return collectQuestions(rows)
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, ids []string, plan DeletePlan) (GroupDeletion, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	valid := validIDs(ids)
	if len(valid) == 0 {
		return GroupDeletion{}, nil
	}

	var result GroupDeletion
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+questionColumns+`
			 `+questionJoins+`
			 WHERE q.id = ANY($1::uuid[])
			 ORDER BY q.created_at ASC, q.id ASC
			 FOR UPDATE OF q`,
			valid,
		)
		if err != nil {
			return fmt.Errorf("lock group: %w", err)
		}
		existing, err := collectQuestions(rows)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return nil
		}

		keep, remove, err := plan(existing)
		if err != nil {
			return err
		}

		victims := make([]string, 0, len(remove))
		for _, id := range remove {
			if id != keep.ID {
				victims = append(victims, id)
			}
		}
		if len(victims) > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM answer_choices WHERE question_id = ANY($1::uuid[])`,
				victims,
			); err != nil {
				return fmt.Errorf("delete answer choices: %w", err)
			}

			deleted, err := tx.Query(ctx,
				`DELETE FROM questions WHERE id = ANY($1::uuid[]) RETURNING id::text`,
				victims,
			)
			if err != nil {
				return fmt.Errorf("delete questions: %w", err)
			}
			deletedIDs, err := pgx.CollectRows(deleted, pgx.RowTo[string])
			if err != nil {
				return fmt.Errorf("collect deleted ids: %w", err)
			}
			result.DeletedIDs = deletedIDs
		}

		result.Preserved = &keep
		return nil
	})
	if err != nil {
		return GroupDeletion{}, err
	}
	return result, nil
}

func (s *PostgresStore) UpsertSubject(ctx context.Context, sub Subject) (Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if sub.Name == "" {
		return Subject{}, fmt.Errorf("subject name is required")
	}
	if sub.Slug == "" {
		sub.Slug = Slugify(sub.Name)
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO subjects (name, slug)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id::text, slug, is_active, created_at`,
		sub.Name,
		sub.Slug,
	).Scan(&sub.ID, &sub.Slug, &sub.Active, &sub.CreatedAt)
	if err != nil {
		return Subject{}, fmt.Errorf("upsert subject: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) UpsertClassLevel(ctx context.Context, cl ClassLevel) (ClassLevel, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO class_levels (subject_id, name, level_number)
		 VALUES ($1::uuid, $2, $3)
		 ON CONFLICT (subject_id, level_number) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id::text, is_active`,
		cl.SubjectID,
		cl.Name,
		cl.LevelNumber,
	).Scan(&cl.ID, &cl.Active)
	if err != nil {
		return ClassLevel{}, fmt.Errorf("upsert class level: %w", err)
	}
	return cl, nil
}

func (s *PostgresStore) UpsertTopic(ctx context.Context, t Topic) (Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO topics (class_level_id, title)
		 VALUES ($1::uuid, $2)
		 ON CONFLICT (class_level_id, title) DO UPDATE SET title = EXCLUDED.title
		 RETURNING id::text, is_active`,
		t.ClassLevelID,
		t.Title,
	).Scan(&t.ID, &t.Active)
	if err != nil {
		return Topic{}, fmt.Errorf("upsert topic: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if q.Type == "" {
		q.Type = TypeMultipleChoice
	}
	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (topic_id, question_text, question_type, correct_answer, created_at)
			 VALUES ($1::uuid, $2, $3, $4, $5)
			 RETURNING id::text, is_active, created_at`,
			q.TopicID,
			q.Text,
			q.Type,
			q.CorrectAnswer,
			createdAt,
		).Scan(&q.ID, &q.Active, &q.CreatedAt); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}

		for i, c := range q.Choices {
			if err := tx.QueryRow(ctx,
				`INSERT INTO answer_choices (question_id, choice_text, is_correct)
				 VALUES ($1::uuid, $2, $3)
				 RETURNING id::text`,
				q.ID,
				c.Text,
				c.IsCorrect,
			).Scan(&q.Choices[i].ID); err != nil {
				return fmt.Errorf("insert answer choice: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func collectQuestions(rows pgx.Rows) ([]Question, error) {
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(
			&q.ID,
			&q.TopicID,
			&q.Text,
			&q.Type,
			&q.CorrectAnswer,
			&q.Active,
			&q.CreatedAt,
			&q.TopicTitle,
			&q.ClassLevel,
			&q.SubjectID,
			&q.SubjectName,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("iterate questions: timed out after %s: %w", dbTimeout, err)
		}
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// validIDs drops duplicates and ids that are not UUIDs; such ids can never
// match a row and would make the uuid[] cast fail.
func validIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		canonical := u.String()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}
