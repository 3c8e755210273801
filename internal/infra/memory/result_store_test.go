package memory

import (
	"context"
	"errors"
	"testing"

	"edubot-quiz/internal/domain"
)

func TestResultStoreAssignsIDsAndTracksAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	identity := domain.QuizIdentity{Flavor: domain.FlavorHomework, ID: "hw-1"}

	seen, err := store.HasResult(ctx, "u1", identity)
	if err != nil || seen {
		t.Fatalf("expected no results yet, got seen=%v err=%v", seen, err)
	}

	result := domain.QuizResult{Owner: domain.Owner{UserID: "u1"}, Identity: identity, Total: 1}
	if err := store.SaveResult(ctx, &result); err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.ID != 1 {
		t.Fatalf("expected id 1, got %d", result.ID)
	}
	if seen, _ := store.HasResult(ctx, "u1", identity); !seen {
		t.Fatalf("expected result to be found")
	}
	if seen, _ := store.HasResult(ctx, "u2", identity); seen {
		t.Fatalf("other owner should not see the result")
	}
}

func TestResultStoreFailure(t *testing.T) {
	store := NewResultStore()
	boom := errors.New("disk full")
	store.FailWith(boom)
	if err := store.SaveResult(context.Background(), &domain.QuizResult{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(store.Results()) != 0 {
		t.Fatalf("failed save must not be stored")
	}
}

func TestPurchases(t *testing.T) {
	p := NewPurchases()
	p.Grant("u1", "bt-1")
	if ok, _ := p.HasPurchased(context.Background(), "u1", "bt-1"); !ok {
		t.Fatalf("expected purchase")
	}
	if ok, _ := p.HasPurchased(context.Background(), "u2", "bt-1"); ok {
		t.Fatalf("unexpected purchase")
	}
}
