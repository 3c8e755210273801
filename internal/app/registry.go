package app

import (
	"sync"
	"time"

	"edubot-quiz/internal/domain"
	"github.com/google/uuid"
)

// DefaultCompletedCap bounds the recently-finalized id cache.
const DefaultCompletedCap = 1024

// Attempt is the live record of one posed question.
type Attempt struct {
	ID            string
	Session       *Session
	QuestionIndex int
	PostedAt      time.Time
	Deadline      time.Time

	finalized bool
	source    domain.OutcomeSource
	timer     Timer
}

// Source reports which completion path claimed the attempt.
func (a *Attempt) Source() domain.OutcomeSource {
	return a.source
}

// Registry arbitrates exactly-once finalization of attempts across all sessions.
// One instance per process, shared by the service and its timers.
type Registry struct {
	mu        sync.Mutex
	now       func() time.Time
	newID     func() string
	active    map[string]*Attempt
	bySession map[*Session]string
	completed *completedSet
}

// NewRegistry returns a registry remembering up to completedCap finalized attempts.
func NewRegistry(completedCap int) *Registry {
	return newRegistryWithClock(completedCap, time.Now)
}

func newRegistryWithClock(completedCap int, now func() time.Time) *Registry {
	if completedCap <= 0 {
		completedCap = DefaultCompletedCap
	}
	return &Registry{
		now:       now,
		newID:     uuid.NewString,
		active:    make(map[string]*Attempt),
		bySession: make(map[*Session]string),
		completed: newCompletedSet(completedCap),
	}
}

// Register creates a new attempt for the session's question at index.
func (r *Registry) Register(s *Session, index int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.bySession[s]; busy {
		return "", domain.ErrAttemptInFlight
	}
	id := r.newID()
	now := r.now()
	r.active[id] = &Attempt{
		ID:            id,
		Session:       s,
		QuestionIndex: index,
		PostedAt:      now,
		Deadline:      now,
	}
	r.bySession[s] = id
	return id, nil
}

// Arm attaches the timeout timer and deadline to a live attempt. When the
// attempt was claimed in the meantime the timer is stopped right away.
func (r *Registry) Arm(id string, timer Timer, limit time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.active[id]
	if !ok || a.finalized {
		timer.Stop()
		return false
	}
	a.timer = timer
	a.PostedAt = r.now()
	a.Deadline = a.PostedAt.Add(limit)
	return true
}

// TryFinalize claims the attempt for source. Exactly one caller per attempt
// gets true; every later or concurrent caller gets false.
func (r *Registry) TryFinalize(id string, source domain.OutcomeSource) (*Attempt, bool) {
	return r.tryFinalize(id, source, nil)
}

// TryFinalizeOwned is TryFinalize limited to attempts whose session belongs
// to userID. An attempt owned by someone else is left live.
func (r *Registry) TryFinalizeOwned(id, userID string, source domain.OutcomeSource) (*Attempt, bool) {
	return r.tryFinalize(id, source, func(a *Attempt) bool {
		return a.Session.owner.UserID == userID
	})
}

func (r *Registry) tryFinalize(id string, source domain.OutcomeSource, accept func(*Attempt) bool) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completed.contains(id) {
		return nil, false
	}
	a, ok := r.active[id]
	if !ok || a.finalized {
		return nil, false
	}
	if accept != nil && !accept(a) {
		return nil, false
	}
	a.finalized = true
	a.source = source
	delete(r.active, id)
	if r.bySession[a.Session] == id {
		delete(r.bySession, a.Session)
	}
	r.completed.add(id)
	if a.timer != nil {
		a.timer.Stop()
	}
	return a, true
}

// Completed reports whether id was finalized recently.
func (r *Registry) Completed(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed.contains(id)
}

// Live returns the number of attempts awaiting an outcome.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// completedSet keeps insertion order so the oldest ids are trimmed first.
type completedSet struct {
	cap   int
	ids   map[string]struct{}
	order []string
}

func newCompletedSet(limit int) *completedSet {
	return &completedSet{cap: limit, ids: make(map[string]struct{}, limit)}
}

func (c *completedSet) add(id string) {
	if _, ok := c.ids[id]; ok {
		return
	}
	c.ids[id] = struct{}{}
	c.order = append(c.order, id)
	if len(c.order) > c.cap {
		c.trim()
	}
}

func (c *completedSet) trim() {
	drop := len(c.order) - c.cap
	for _, id := range c.order[:drop] {
		delete(c.ids, id)
	}
	kept := make([]string, c.cap, c.cap*2)
	copy(kept, c.order[drop:])
	c.order = kept
}

func (c *completedSet) contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

func (c *completedSet) len() int {
	return len(c.order)
}
