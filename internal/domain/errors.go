package domain

import "errors"

var (
	// ErrNoQuestions is returned when a quiz snapshot comes back empty.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNotPurchased is returned when a bonus test is started without a purchase.
	ErrNotPurchased = errors.New("bonus test not purchased")
	// ErrSessionActive is returned when the owner already runs a quiz.
	ErrSessionActive = errors.New("quiz session already running")
	// ErrAttemptInFlight is returned when a session already has a live attempt.
	ErrAttemptInFlight = errors.New("question attempt already in flight")
	// ErrMalformedAnswer marks an answer that references an unknown option.
	ErrMalformedAnswer = errors.New("answer references unknown option")
	// ErrPersistence wraps result sink failures.
	ErrPersistence = errors.New("persist quiz result")
	// ErrUnknownFlavor is returned for quiz flavors without a strategy.
	ErrUnknownFlavor = errors.New("unknown quiz flavor")
)
