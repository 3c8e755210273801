package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"edubot-quiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads question bank JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

// NewQuizLoader reads question banks through pool.
func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	var (
		title string
		raw   []byte
	)
	err := l.pool.QueryRow(ctx, `SELECT title, data FROM question_banks WHERE kind=$1 AND ref_id=$2`, ref.Kind, ref.ID).Scan(&title, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, ref)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load question bank: %w", err)
	}
	quiz := domain.Quiz{Ref: ref, Title: title}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal question bank: %w", err)
	}
	return quiz, nil
}

// SaveQuiz upserts a question bank; used by seeding and tests.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
INSERT INTO question_banks (kind, ref_id, title, data) VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (kind, ref_id) DO UPDATE SET title=EXCLUDED.title, data=EXCLUDED.data, updated_at=now()`,
		quiz.Ref.Kind, quiz.Ref.ID, quiz.Title, string(raw))
	if err != nil {
		return fmt.Errorf("save question bank: %w", err)
	}
	return nil
}
