package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"edubot-quiz/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz())}
	repo := NewQuizRepository(loader, time.Minute)
	ref := sampleQuiz().Ref

	if _, err := repo.LoadQuiz(context.Background(), ref); err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.LoadQuiz(context.Background(), ref); err != nil {
		t.Fatalf("load quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	repo.Invalidate(ref)
	if _, err := repo.LoadQuiz(context.Background(), ref); err != nil {
		t.Fatalf("load quiz 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(sampleQuiz()), time.Minute)
	ref := sampleQuiz().Ref

	first, err := repo.LoadQuiz(context.Background(), ref)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	first.Questions[0].Options[0].Text = "mutated"

	second, _ := repo.LoadQuiz(context.Background(), ref)
	if second.Questions[0].Options[0].Text != "3" {
		t.Fatalf("cached bank was mutated: %+v", second.Questions[0].Options[0])
	}
}

func TestStaticLoaderUnknownQuiz(t *testing.T) {
	_, err := NewStaticQuizLoader().LoadQuiz(context.Background(), domain.QuizRef{Kind: domain.KindHomework, ID: "nope"})
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, ref)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Ref: domain.QuizRef{Kind: domain.KindHomework, ID: "hw-1"},
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Order: 0},
					{ID: "o2", Text: "4", Correct: true, Order: 1},
				},
				TimeLimit: 30,
			},
		},
	}
}
