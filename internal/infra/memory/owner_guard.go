package memory

import (
	"context"
	"sync"
	"time"
)

// OwnerGuard is an in-memory implementation of app.OwnerGuard.
type OwnerGuard struct {
	mu     sync.Mutex
	clock  func() time.Time
	owners map[string]guardEntry
}

type guardEntry struct {
	sessionID string
	expiresAt time.Time
}

// NewOwnerGuard returns an empty guard.
func NewOwnerGuard() *OwnerGuard {
	return &OwnerGuard{
		clock:  time.Now,
		owners: make(map[string]guardEntry),
	}
}

// Acquire claims userID for sessionID; an expired claim counts as free.
func (g *OwnerGuard) Acquire(_ context.Context, userID, sessionID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock()
	if entry, ok := g.owners[userID]; ok && entry.expiresAt.After(now) {
		return false, nil
	}
	g.owners[userID] = guardEntry{sessionID: sessionID, expiresAt: now.Add(ttl)}
	return true, nil
}

func (g *OwnerGuard) Release(_ context.Context, userID, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok := g.owners[userID]; ok && entry.sessionID == sessionID {
		delete(g.owners, userID)
	}
	return nil
}

// Held reports whether userID currently holds the guard.
func (g *OwnerGuard) Held(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.owners[userID]
	return ok && entry.expiresAt.After(g.clock())
}
