package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsClaimed counts completion signals that won an attempt.
	AttemptsClaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_claimed_total",
			Help: "Question attempts finalized, by completion path",
		},
		[]string{"source"},
	)

	// StaleSignals counts completion signals that arrived after the attempt was claimed.
	StaleSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_stale_signals_total",
			Help: "Completion signals dropped because the attempt was already finalized",
		},
		[]string{"source"},
	)

	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions started",
		},
		[]string{"flavor"},
	)

	// SessionsFinished is labeled with status: ok, persist_failed, aborted.
	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sessions_finished_total",
			Help: "Quiz sessions that reached the complete state",
		},
		[]string{"flavor", "status"},
	)

	LiveAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_live_attempts",
			Help: "Question attempts currently awaiting an outcome",
		},
	)

	QuestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_question_seconds",
			Help:    "Time from posting a question to its outcome",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"source"},
	)
)
