package flavor

import (
	"context"
	"fmt"
	"strings"

	"edubot-quiz/internal/domain"
)

// BonusTest runs a purchased test. It never pays points.
type BonusTest struct {
	store
	bank      QuestionBank
	purchases Purchases
}

// NewBonusTest builds the bonus test strategy; a nil purchases skips the gate.
func NewBonusTest(bank QuestionBank, results ResultStore, purchases Purchases) *BonusTest {
	return &BonusTest{store: store{results: results}, bank: bank, purchases: purchases}
}

func (t *BonusTest) Flavor() domain.Flavor { return domain.FlavorBonus }

func (t *BonusTest) Identity(params domain.QuizParams) domain.QuizIdentity {
	return domain.QuizIdentity{Flavor: domain.FlavorBonus, ID: params.BonusTestID}
}

func (t *BonusTest) LoadQuestions(ctx context.Context, owner domain.Owner, params domain.QuizParams) ([]domain.Question, error) {
	if t.purchases != nil {
		ok, err := t.purchases.HasPurchased(ctx, owner.UserID, params.BonusTestID)
		if err != nil {
			return nil, fmt.Errorf("check purchase: %w", err)
		}
		if !ok {
			return nil, domain.ErrNotPurchased
		}
	}
	return loadQuestions(ctx, t.bank, domain.QuizRef{Kind: domain.KindBonus, ID: params.BonusTestID})
}

func (t *BonusTest) ComputePoints(int, int, bool) int { return 0 }

func (t *BonusTest) RenderSummary(result domain.QuizResult) string {
	var b strings.Builder
	b.WriteString("Bonus test finished\n")
	writeScore(&b, result)
	return strings.TrimRight(b.String(), "\n")
}
