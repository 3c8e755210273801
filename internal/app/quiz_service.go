package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"edubot-quiz/internal/domain"
	"edubot-quiz/internal/metrics"
)

const (
	// DefaultTimeLimit applies to questions authored without a limit.
	DefaultTimeLimit = 30 * time.Second
	// DefaultGuardTTL bounds how long a crashed run can block its owner.
	DefaultGuardTTL = time.Hour

	sourceWithdrawn domain.OutcomeSource = "withdrawn"

	// NoOption is the index of an answer that selected nothing.
	NoOption = -1

	genericFailureText = "Something went wrong while saving your results. Please try again later."
	postFailureText    = "Could not deliver the next question. The run has been stopped."
)

// Options wires the collaborators of a QuizService. Zero values get defaults.
type Options struct {
	Registry         *Registry
	Scheduler        Scheduler
	Messenger        Messenger
	Guard            OwnerGuard
	Publisher        ResultPublisher
	Logger           *slog.Logger
	DefaultTimeLimit time.Duration
	GuardTTL         time.Duration
	Now              func() time.Time
}

// QuizService drives timed quiz sessions: it poses questions in order,
// arbitrates answers against timeouts and finalizes through the strategy.
type QuizService struct {
	registry  *Registry
	scheduler Scheduler
	messenger Messenger
	janitor   *MessageJanitor
	guard     OwnerGuard
	publisher ResultPublisher
	log       *slog.Logger
	limit     time.Duration
	guardTTL  time.Duration
	now       func() time.Time
	base      context.Context
}

// NewQuizService builds the engine from opts. Messenger is required.
func NewQuizService(opts Options) *QuizService {
	s := &QuizService{
		registry:  opts.Registry,
		scheduler: opts.Scheduler,
		messenger: opts.Messenger,
		guard:     opts.Guard,
		publisher: opts.Publisher,
		log:       opts.Logger,
		limit:     opts.DefaultTimeLimit,
		guardTTL:  opts.GuardTTL,
		now:       opts.Now,
		base:      context.Background(),
	}
	if s.registry == nil {
		s.registry = NewRegistry(DefaultCompletedCap)
	}
	if s.scheduler == nil {
		s.scheduler = NewTimeScheduler()
	}
	if s.guard == nil {
		s.guard = nopGuard{}
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.limit <= 0 {
		s.limit = DefaultTimeLimit
	}
	if s.guardTTL <= 0 {
		s.guardTTL = DefaultGuardTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.janitor = NewMessageJanitor(s.messenger, s.log)
	return s
}

// Registry exposes the attempt registry shared with the timers.
func (s *QuizService) Registry() *Registry {
	return s.registry
}

// Janitor exposes the message lifecycle manager.
func (s *QuizService) Janitor() *MessageJanitor {
	return s.janitor
}

// Start loads the snapshot, checks first-attempt status and poses the first question.
func (s *QuizService) Start(ctx context.Context, owner domain.Owner, params domain.QuizParams, strategy Strategy) (*Session, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownFlavor, params.Flavor)
	}
	questions, err := strategy.LoadQuestions(ctx, owner, params)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	identity := strategy.Identity(params)
	first, err := strategy.IsFirstAttempt(ctx, owner, identity)
	if err != nil {
		return nil, fmt.Errorf("check first attempt: %w", err)
	}

	sess := newSession(owner, identity, strategy, normalize(questions), first, s.now())
	acquired, err := s.guard.Acquire(ctx, owner.UserID, sess.id, s.sessionTTL(sess))
	if err != nil {
		return nil, fmt.Errorf("acquire session guard: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSessionActive
	}

	metrics.SessionsStarted.WithLabelValues(string(strategy.Flavor())).Inc()
	s.log.Info("quiz session started",
		"session", sess.id, "user", owner.UserID, "quiz", identity.String(),
		"questions", sess.Total(), "first_attempt", first)

	work := context.WithoutCancel(ctx)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.poseNextLocked(work, sess); err != nil {
		s.abortLocked(work, sess, err)
		return nil, err
	}
	return sess, nil
}

// OnAnswer handles an answer sent by userID. It returns false when the
// attempt was already finalized or belongs to another user, in which case
// the answer is dropped. An out-of-range optionIndex is scored incorrect.
func (s *QuizService) OnAnswer(ctx context.Context, userID, attemptID string, optionIndex int) bool {
	a, ok := s.claimOwned(attemptID, userID, domain.SourceAnswer)
	if !ok {
		return false
	}
	sess := a.Session
	work := context.WithoutCancel(ctx)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !s.matchesCursorLocked(sess, a) {
		return true
	}

	q := sess.currentLocked()
	outcome := domain.QuestionOutcome{
		QuestionID: q.ID,
		TimeSpent:  s.now().Sub(a.PostedAt),
		Topic:      q.Topic,
		Subject:    q.Subject,
		Source:     domain.SourceAnswer,
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		s.log.Info("malformed answer scored as incorrect",
			"session", sess.id, "attempt", a.ID, "option_index", optionIndex, "err", domain.ErrMalformedAnswer)
	} else {
		opt := q.Options[optionIndex]
		selected := opt.ID
		outcome.SelectedOptionID = &selected
		outcome.Correct = opt.Correct
	}
	s.recordLocked(sess, outcome)
	s.advanceLocked(work, sess)
	return true
}

// OnTimeout is fired by the scheduler when a question's limit elapses.
func (s *QuizService) OnTimeout(attemptID string) bool {
	a, ok := s.claim(attemptID, domain.SourceTimeout)
	if !ok {
		return false
	}
	return s.closeAttempt(s.base, a, domain.SourceTimeout)
}

// OnPromptClosed handles a report from userID's chat that a prompt stopped
// accepting input. It is a no-op whenever the timeout or an answer won first.
func (s *QuizService) OnPromptClosed(ctx context.Context, userID, attemptID string) bool {
	a, ok := s.claimOwned(attemptID, userID, domain.SourcePromptClosed)
	if !ok {
		return false
	}
	return s.closeAttempt(context.WithoutCancel(ctx), a, domain.SourcePromptClosed)
}

func (s *QuizService) closeAttempt(ctx context.Context, a *Attempt, source domain.OutcomeSource) bool {
	sess := a.Session

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !s.matchesCursorLocked(sess, a) {
		return true
	}

	q := sess.currentLocked()
	spent := s.now().Sub(a.PostedAt)
	if source == domain.SourceTimeout {
		spent = a.Deadline.Sub(a.PostedAt)
	}
	s.recordLocked(sess, domain.QuestionOutcome{
		QuestionID: q.ID,
		TimeSpent:  spent,
		Topic:      q.Topic,
		Subject:    q.Subject,
		Source:     source,
	})
	s.notifyLocked(ctx, sess, timeUpText(q), true)
	s.advanceLocked(ctx, sess)
	return true
}

func (s *QuizService) claim(attemptID string, source domain.OutcomeSource) (*Attempt, bool) {
	a, ok := s.registry.TryFinalize(attemptID, source)
	return s.recordClaim(a, ok, source)
}

// claimOwned claims only attempts of userID's own session.
func (s *QuizService) claimOwned(attemptID, userID string, source domain.OutcomeSource) (*Attempt, bool) {
	a, ok := s.registry.TryFinalizeOwned(attemptID, userID, source)
	return s.recordClaim(a, ok, source)
}

func (s *QuizService) recordClaim(a *Attempt, ok bool, source domain.OutcomeSource) (*Attempt, bool) {
	if !ok {
		metrics.StaleSignals.WithLabelValues(string(source)).Inc()
		return nil, false
	}
	metrics.AttemptsClaimed.WithLabelValues(string(source)).Inc()
	metrics.LiveAttempts.Set(float64(s.registry.Live()))
	return a, true
}

func (s *QuizService) matchesCursorLocked(sess *Session, a *Attempt) bool {
	if sess.state != StateAwaitingOutcome || a.QuestionIndex != sess.cursor {
		s.log.Error("claimed attempt does not match session cursor",
			"session", sess.id, "attempt", a.ID, "index", a.QuestionIndex, "cursor", sess.cursor, "state", sess.state.String())
		return false
	}
	return true
}

func (s *QuizService) recordLocked(sess *Session, outcome domain.QuestionOutcome) {
	metrics.QuestionDuration.WithLabelValues(string(outcome.Source)).Observe(outcome.TimeSpent.Seconds())
	sess.recordLocked(outcome)
}

func (s *QuizService) poseNextLocked(ctx context.Context, sess *Session) error {
	sess.setStateLocked(StatePosing)
	q := sess.currentLocked()

	id, err := s.registry.Register(sess, sess.cursor)
	if err != nil {
		return err
	}
	metrics.LiveAttempts.Set(float64(s.registry.Live()))

	limit := s.timeLimit(q)
	handles, err := s.messenger.PostPrompt(ctx, sess.owner.ChatID, buildPrompt(id, sess.cursor+1, sess.Total(), q, limit))
	s.janitor.Track(sess, handles...)
	if err != nil {
		s.registry.TryFinalize(id, sourceWithdrawn)
		return fmt.Errorf("post prompt: %w", err)
	}

	timer := s.scheduler.AfterFunc(limit, func() { s.OnTimeout(id) })
	s.registry.Arm(id, timer, limit)
	sess.setStateLocked(StateAwaitingOutcome)
	return nil
}

func (s *QuizService) advanceLocked(ctx context.Context, sess *Session) {
	if sess.exhaustedLocked() {
		s.finalizeLocked(ctx, sess)
		return
	}
	if err := s.poseNextLocked(ctx, sess); err != nil {
		s.abortLocked(ctx, sess, err)
	}
}

func (s *QuizService) finalizeLocked(ctx context.Context, sess *Session) {
	sess.setStateLocked(StateFinalizing)
	strategy := sess.strategy
	points := strategy.ComputePoints(sess.correct, sess.Total(), sess.firstAttempt)
	draft := sess.draftLocked(points, s.now())

	result, err := strategy.Persist(ctx, draft)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		s.log.Error("persist quiz result", "session", sess.id, "user", sess.owner.UserID, "quiz", sess.identity.String(), "err", err)
		s.notifyLocked(ctx, sess, genericFailureText, false)
		s.endLocked(ctx, sess, nil, err, "persist_failed")
		return
	}

	if _, err := s.messenger.Send(ctx, sess.owner.ChatID, KindSummary, strategy.RenderSummary(result)); err != nil {
		s.log.Warn("send quiz summary", "session", sess.id, "err", err)
	}
	s.endLocked(ctx, sess, &result, nil, "ok")

	if err := s.publisher.PublishResult(ctx, result); err != nil {
		s.log.Warn("publish quiz result", "session", sess.id, "result", result.ID, "err", err)
	}
	s.log.Info("quiz session finished",
		"session", sess.id, "user", sess.owner.UserID, "quiz", sess.identity.String(),
		"correct", result.Correct, "total", result.Total, "points", result.Points)
}

func (s *QuizService) abortLocked(ctx context.Context, sess *Session, cause error) {
	s.log.Error("quiz session aborted", "session", sess.id, "user", sess.owner.UserID, "err", cause)
	sess.setStateLocked(StateFinalizing)
	if _, err := s.messenger.Send(ctx, sess.owner.ChatID, KindError, postFailureText); err != nil {
		s.log.Debug("send abort notice", "session", sess.id, "err", err)
	}
	s.endLocked(ctx, sess, nil, cause, "aborted")
}

func (s *QuizService) endLocked(ctx context.Context, sess *Session, result *domain.QuizResult, err error, status string) {
	s.janitor.Cleanup(ctx, sess)
	if relErr := s.guard.Release(ctx, sess.owner.UserID, sess.id); relErr != nil {
		s.log.Warn("release session guard", "session", sess.id, "err", relErr)
	}
	metrics.SessionsFinished.WithLabelValues(string(sess.strategy.Flavor()), status).Inc()
	sess.completeLocked(result, err)
}

// notifyLocked sends a notice; tracked notices are removed at cleanup.
func (s *QuizService) notifyLocked(ctx context.Context, sess *Session, text string, track bool) {
	kind := KindNotice
	if !track {
		kind = KindError
	}
	h, err := s.messenger.Send(ctx, sess.owner.ChatID, kind, text)
	if err != nil {
		s.log.Debug("send notice", "session", sess.id, "err", err)
		return
	}
	if track {
		s.janitor.Track(sess, h)
	}
}

func (s *QuizService) timeLimit(q domain.Question) time.Duration {
	if domain.ValidTimeLimit(q.TimeLimit) {
		return time.Duration(q.TimeLimit) * time.Second
	}
	return s.limit
}

func (s *QuizService) sessionTTL(sess *Session) time.Duration {
	var sum time.Duration
	for _, q := range sess.snapshot {
		sum += s.timeLimit(q)
	}
	if sum+time.Minute > s.guardTTL {
		return sum + time.Minute
	}
	return s.guardTTL
}

// normalize orders options by display order and renumbers them 0..n-1 so an
// option index from the chat maps straight onto the slice.
func normalize(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		q = q.Clone()
		sort.SliceStable(q.Options, func(a, b int) bool { return q.Options[a].Order < q.Options[b].Order })
		for j := range q.Options {
			q.Options[j].Order = j
		}
		out[i] = q
	}
	return out
}

func buildPrompt(attemptID string, number, total int, q domain.Question, limit time.Duration) Prompt {
	seconds := int(limit / time.Second)
	options := make([]PromptOption, len(q.Options))
	for i, opt := range q.Options {
		options[i] = PromptOption{Letter: domain.OptionLetter(i), Text: opt.Text}
	}
	return Prompt{
		AttemptID:     attemptID,
		Number:        number,
		Total:         total,
		Text:          q.Text,
		ImageRef:      q.ImageRef,
		Options:       options,
		TimeLimit:     seconds,
		TimeLimitText: domain.FormatSeconds(seconds),
	}
}

func timeUpText(q domain.Question) string {
	if opt, ok := q.CorrectOption(); ok {
		return fmt.Sprintf("Time is up! Correct answer: %s) %s", opt.Letter(), opt.Text)
	}
	return "Time is up!"
}
