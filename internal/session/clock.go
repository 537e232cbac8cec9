package session

import "time"

// Timer is a pending scheduled action. Stop reports whether the action
// was cancelled before it ran.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the session core so debounce and idle timers
// are deterministic under test. Scheduling a new action on the same
// owner cancels the prior pending one; that single-pending-timer rule
// is enforced by the callers, not the clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall-clock implementation used outside tests.
var SystemClock Clock = wallClock{}
