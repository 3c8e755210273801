package app

import "time"

// Timer is a pending deferred action.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The real implementation wraps time.AfterFunc;
// tests swap in a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

// NewTimeScheduler returns a Scheduler backed by the runtime timer heap.
func NewTimeScheduler() Scheduler {
	return timeScheduler{}
}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
