// Package flavor holds the completion strategies for each quiz kind.
package flavor

import (
	"context"
	"fmt"

	"edubot-quiz/internal/app"
	"edubot-quiz/internal/domain"
)

// DefaultReward is the per-question payout for a perfect first homework run.
const DefaultReward = 3

// QuestionBank loads question banks by reference.
type QuestionBank interface {
	LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error)
}

// ResultStore is the result sink. SaveResult writes the result and all of its
// outcomes together and fills in result.ID.
type ResultStore interface {
	SaveResult(ctx context.Context, result *domain.QuizResult) error
	HasResult(ctx context.Context, userID string, identity domain.QuizIdentity) (bool, error)
}

// Purchases answers whether a user bought a bonus test.
type Purchases interface {
	HasPurchased(ctx context.Context, userID, testID string) (bool, error)
}

// PerfectScorePoints pays reward per question only for a perfect first attempt.
func PerfectScorePoints(reward, correct, total int, firstAttempt bool) int {
	if !firstAttempt || total <= 0 || correct != total || reward <= 0 {
		return 0
	}
	return reward * total
}

// Set maps flavors onto their strategies.
type Set map[domain.Flavor]app.Strategy

// NewSet builds the three standard strategies over shared stores.
func NewSet(bank QuestionBank, results ResultStore, purchases Purchases, reward int) Set {
	strategies := []app.Strategy{
		NewHomework(bank, results, reward),
		NewBonusTest(bank, results, purchases),
		NewMockExam(bank, results, nil),
	}
	set := make(Set, len(strategies))
	for _, s := range strategies {
		set[s.Flavor()] = s
	}
	return set
}

// Lookup returns the strategy for flavor.
func (s Set) Lookup(flavor domain.Flavor) (app.Strategy, error) {
	if strategy, ok := s[flavor]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFlavor, flavor)
}

// store carries the persistence half shared by every flavor.
type store struct {
	results ResultStore
}

func (s store) IsFirstAttempt(ctx context.Context, owner domain.Owner, identity domain.QuizIdentity) (bool, error) {
	seen, err := s.results.HasResult(ctx, owner.UserID, identity)
	if err != nil {
		return false, err
	}
	return !seen, nil
}

func (s store) Persist(ctx context.Context, draft domain.QuizResult) (domain.QuizResult, error) {
	if len(draft.Outcomes) != draft.Total {
		return domain.QuizResult{}, fmt.Errorf("result has %d outcomes for %d questions", len(draft.Outcomes), draft.Total)
	}
	result := draft
	if err := s.results.SaveResult(ctx, &result); err != nil {
		return domain.QuizResult{}, err
	}
	return result, nil
}

func loadQuestions(ctx context.Context, bank QuestionBank, ref domain.QuizRef) ([]domain.Question, error) {
	if ref.ID == "" {
		return nil, fmt.Errorf("%w: empty %s id", domain.ErrQuizNotFound, ref.Kind)
	}
	quiz, err := bank.LoadQuiz(ctx, ref)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}
