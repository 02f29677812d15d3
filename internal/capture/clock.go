package capture

import "time"

// Timer is the cancellable handle behind one scheduled snapshot.
type Timer interface {
	Stop() bool
}

// Clock abstracts timer arming so tests can advance time deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock arms wall-clock timers.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
