package memory

import (
	"context"
	"sync"

	"edubot-quiz/internal/domain"
)

// ResultStore keeps quiz results in process memory.
type ResultStore struct {
	mu      sync.RWMutex
	nextID  int64
	results []domain.QuizResult
	failErr error
}

// NewResultStore returns an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// FailWith makes every later SaveResult return err; nil restores normal behavior.
func (s *ResultStore) FailWith(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *ResultStore) SaveResult(_ context.Context, result *domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.nextID++
	result.ID = s.nextID
	stored := *result
	stored.Outcomes = append([]domain.QuestionOutcome(nil), result.Outcomes...)
	s.results = append(s.results, stored)
	return nil
}

func (s *ResultStore) HasResult(_ context.Context, userID string, identity domain.QuizIdentity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Owner.UserID == userID && r.Identity == identity {
			return true, nil
		}
	}
	return false, nil
}

// Results returns a copy of everything saved so far in insertion order.
func (s *ResultStore) Results() []domain.QuizResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizResult(nil), s.results...)
}

// Purchases is an in-memory purchase ledger.
type Purchases struct {
	mu    sync.RWMutex
	owned map[string]map[string]struct{}
}

// NewPurchases returns an empty purchase ledger.
func NewPurchases() *Purchases {
	return &Purchases{owned: make(map[string]map[string]struct{})}
}

// Grant records that userID bought testID.
func (p *Purchases) Grant(userID, testID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tests, ok := p.owned[userID]
	if !ok {
		tests = make(map[string]struct{})
		p.owned[userID] = tests
	}
	tests[testID] = struct{}{}
}

func (p *Purchases) HasPurchased(_ context.Context, userID, testID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.owned[userID][testID]
	return ok, nil
}
