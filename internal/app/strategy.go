package app

import (
	"context"
	"time"

	"edubot-quiz/internal/domain"
)

// Strategy is the flavor-specific policy for a quiz run.
type Strategy interface {
	Flavor() domain.Flavor
	Identity(params domain.QuizParams) domain.QuizIdentity
	LoadQuestions(ctx context.Context, owner domain.Owner, params domain.QuizParams) ([]domain.Question, error)
	IsFirstAttempt(ctx context.Context, owner domain.Owner, identity domain.QuizIdentity) (bool, error)
	ComputePoints(correct, total int, firstAttempt bool) int
	Persist(ctx context.Context, draft domain.QuizResult) (domain.QuizResult, error)
	RenderSummary(result domain.QuizResult) string
}

// OwnerGuard keeps an owner from running two sessions at once.
type OwnerGuard interface {
	Acquire(ctx context.Context, userID, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, userID, sessionID string) error
}

// ResultPublisher announces finished sessions to downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result domain.QuizResult) error
}

type nopGuard struct{}

func (nopGuard) Acquire(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}

func (nopGuard) Release(context.Context, string, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishResult(context.Context, domain.QuizResult) error { return nil }
