package app

import (
	"sync"
	"time"

	"edubot-quiz/internal/domain"
	"github.com/google/uuid"
)

// State is the lifecycle stage of a quiz session.
type State int

const (
	StateCreated State = iota
	StatePosing
	StateAwaitingOutcome
	StateFinalizing
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePosing:
		return "posing"
	case StateAwaitingOutcome:
		return "awaiting_outcome"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// canTransition lists the legal edges of the session state machine.
func (s State) canTransition(next State) bool {
	switch s {
	case StateCreated:
		return next == StatePosing || next == StateFinalizing
	case StatePosing:
		return next == StateAwaitingOutcome || next == StateFinalizing
	case StateAwaitingOutcome:
		return next == StatePosing || next == StateFinalizing
	case StateFinalizing:
		return next == StateComplete
	case StateComplete:
		return false
	}
	return false
}

// Session is one in-memory quiz run. Mutations happen only in the goroutine
// that claimed the current attempt, under mu.
type Session struct {
	id        string
	owner     domain.Owner
	identity  domain.QuizIdentity
	strategy  Strategy
	snapshot  []domain.Question
	startedAt time.Time

	mu           sync.Mutex
	state        State
	cursor       int
	correct      int
	firstAttempt bool
	outcomes     []domain.QuestionOutcome
	result       *domain.QuizResult
	err          error
	done         chan struct{}

	pendingMu sync.Mutex
	pending   []MessageHandle
}

func newSession(owner domain.Owner, identity domain.QuizIdentity, strategy Strategy, questions []domain.Question, firstAttempt bool, now time.Time) *Session {
	snapshot := make([]domain.Question, len(questions))
	for i, q := range questions {
		snapshot[i] = q.Clone()
	}
	return &Session{
		id:           uuid.NewString(),
		owner:        owner,
		identity:     identity,
		strategy:     strategy,
		snapshot:     snapshot,
		startedAt:    now,
		state:        StateCreated,
		firstAttempt: firstAttempt,
		outcomes:     make([]domain.QuestionOutcome, 0, len(snapshot)),
		done:         make(chan struct{}),
	}
}

func (s *Session) ID() string                    { return s.id }
func (s *Session) Owner() domain.Owner           { return s.owner }
func (s *Session) Identity() domain.QuizIdentity { return s.identity }
func (s *Session) Total() int                    { return len(s.snapshot) }

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reached StateComplete.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the persisted result, or nil when the session failed.
func (s *Session) Result() *domain.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the error that ended the session early, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) setStateLocked(next State) bool {
	if !s.state.canTransition(next) {
		return false
	}
	s.state = next
	return true
}

func (s *Session) currentLocked() domain.Question {
	return s.snapshot[s.cursor]
}

func (s *Session) recordLocked(outcome domain.QuestionOutcome) {
	if outcome.Correct {
		s.correct++
	}
	s.outcomes = append(s.outcomes, outcome)
	s.cursor++
}

func (s *Session) exhaustedLocked() bool {
	return s.cursor >= len(s.snapshot)
}

func (s *Session) draftLocked(points int, completedAt time.Time) domain.QuizResult {
	return domain.QuizResult{
		Owner:        s.owner,
		Identity:     s.identity,
		Total:        len(s.snapshot),
		Correct:      s.correct,
		Points:       points,
		FirstAttempt: s.firstAttempt,
		StartedAt:    s.startedAt,
		CompletedAt:  completedAt,
		Outcomes:     append([]domain.QuestionOutcome(nil), s.outcomes...),
	}
}

func (s *Session) completeLocked(result *domain.QuizResult, err error) {
	s.result = result
	s.err = err
	s.state = StateComplete
	close(s.done)
}
