package flavor

import (
	"context"
	"fmt"
	"strings"

	"edubot-quiz/internal/domain"
)

// Homework checks a lesson's question bank and pays points for a perfect first run.
type Homework struct {
	store
	bank   QuestionBank
	reward int
}

// NewHomework builds the homework strategy; reward <= 0 uses DefaultReward.
func NewHomework(bank QuestionBank, results ResultStore, reward int) *Homework {
	if reward <= 0 {
		reward = DefaultReward
	}
	return &Homework{store: store{results: results}, bank: bank, reward: reward}
}

func (h *Homework) Flavor() domain.Flavor { return domain.FlavorHomework }

func (h *Homework) Identity(params domain.QuizParams) domain.QuizIdentity {
	return domain.QuizIdentity{Flavor: domain.FlavorHomework, ID: params.HomeworkID}
}

func (h *Homework) LoadQuestions(ctx context.Context, _ domain.Owner, params domain.QuizParams) ([]domain.Question, error) {
	return loadQuestions(ctx, h.bank, domain.QuizRef{Kind: domain.KindHomework, ID: params.HomeworkID})
}

func (h *Homework) ComputePoints(correct, total int, firstAttempt bool) int {
	return PerfectScorePoints(h.reward, correct, total, firstAttempt)
}

func (h *Homework) RenderSummary(result domain.QuizResult) string {
	var b strings.Builder
	b.WriteString("Homework check finished\n")
	writeScore(&b, result)
	switch {
	case result.Points > 0:
		fmt.Fprintf(&b, "Points earned: %d\n", result.Points)
	case !result.FirstAttempt:
		b.WriteString("Points are only awarded on the first attempt.\n")
	default:
		b.WriteString("Answer every question correctly to earn points.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeScore(b *strings.Builder, result domain.QuizResult) {
	fmt.Fprintf(b, "Correct answers: %d/%d (%d%%)\n", result.Correct, result.Total, result.Percent())
	fmt.Fprintf(b, "Time: %s\n", domain.FormatDuration(result.Duration()))
}
