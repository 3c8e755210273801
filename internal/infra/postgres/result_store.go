package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"edubot-quiz/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type quizResultRow struct {
	bun.BaseModel `bun:"table:quiz_results"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       string    `bun:"user_id,notnull"`
	ChatID       string    `bun:"chat_id,notnull"`
	Flavor       string    `bun:"flavor,notnull"`
	QuizID       string    `bun:"quiz_id,notnull"`
	Total        int       `bun:"total,notnull"`
	Correct      int       `bun:"correct,notnull"`
	Points       int       `bun:"points,notnull"`
	FirstAttempt bool      `bun:"first_attempt,notnull"`
	StartedAt    time.Time `bun:"started_at,notnull"`
	CompletedAt  time.Time `bun:"completed_at,notnull"`
}

type questionOutcomeRow struct {
	bun.BaseModel `bun:"table:question_outcomes"`

	ID               int64   `bun:"id,pk,autoincrement"`
	ResultID         int64   `bun:"result_id,notnull"`
	Position         int     `bun:"position,notnull"`
	QuestionID       string  `bun:"question_id,notnull"`
	SelectedOptionID *string `bun:"selected_option_id"`
	IsCorrect        bool    `bun:"is_correct,notnull"`
	TimeSpentMS      int64   `bun:"time_spent_ms,notnull"`
	Topic            *string `bun:"topic"`
	Subject          *string `bun:"subject"`
	Source           string  `bun:"source,notnull"`
}

// ResultStore persists quiz results through bun.
type ResultStore struct {
	db *bun.DB
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewResultStore persists results through db.
func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveResult inserts the result row and one outcome row per question in a single transaction.
func (s *ResultStore) SaveResult(ctx context.Context, result *domain.QuizResult) error {
	row := &quizResultRow{
		UserID:       result.Owner.UserID,
		ChatID:       result.Owner.ChatID,
		Flavor:       string(result.Identity.Flavor),
		QuizID:       result.Identity.ID,
		Total:        result.Total,
		Correct:      result.Correct,
		Points:       result.Points,
		FirstAttempt: result.FirstAttempt,
		StartedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz result: %w", err)
		}
		if len(result.Outcomes) > 0 {
			outcomes := outcomeRows(row.ID, result.Outcomes)
			if _, err := tx.NewInsert().Model(&outcomes).Exec(ctx); err != nil {
				return fmt.Errorf("insert question outcomes: %w", err)
			}
		}
		result.ID = row.ID
		return nil
	})
}

// HasResult reports whether userID has any stored run of identity.
func (s *ResultStore) HasResult(ctx context.Context, userID string, identity domain.QuizIdentity) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*quizResultRow)(nil)).
		Where("user_id = ?", userID).
		Where("flavor = ?", string(identity.Flavor)).
		Where("quiz_id = ?", identity.ID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("query quiz results: %w", err)
	}
	return exists, nil
}

// Outcomes loads the stored outcomes of a result in question order.
func (s *ResultStore) Outcomes(ctx context.Context, resultID int64) ([]domain.QuestionOutcome, error) {
	var rows []questionOutcomeRow
	err := s.db.NewSelect().Model(&rows).Where("result_id = ?", resultID).Order("position ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query question outcomes: %w", err)
	}
	out := make([]domain.QuestionOutcome, len(rows))
	for i, r := range rows {
		out[i] = domain.QuestionOutcome{
			QuestionID:       r.QuestionID,
			SelectedOptionID: r.SelectedOptionID,
			Correct:          r.IsCorrect,
			TimeSpent:        time.Duration(r.TimeSpentMS) * time.Millisecond,
			Topic:            deref(r.Topic),
			Subject:          deref(r.Subject),
			Source:           domain.OutcomeSource(r.Source),
		}
	}
	return out, nil
}

func outcomeRows(resultID int64, outcomes []domain.QuestionOutcome) []questionOutcomeRow {
	rows := make([]questionOutcomeRow, len(outcomes))
	for i, o := range outcomes {
		rows[i] = questionOutcomeRow{
			ResultID:         resultID,
			Position:         i,
			QuestionID:       o.QuestionID,
			SelectedOptionID: o.SelectedOptionID,
			IsCorrect:        o.Correct,
			TimeSpentMS:      o.TimeSpent.Milliseconds(),
			Topic:            nullable(o.Topic),
			Subject:          nullable(o.Subject),
			Source:           string(o.Source),
		}
	}
	return rows
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
