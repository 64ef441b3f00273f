package clock

import "time"

// Clock abstracts the time source so hold expiry can be tested
// deterministically.  All implementations return UTC instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the instant it was created with, optionally
// advanced by Advance.  Useful in tests that assert on TTL boundaries.
type FixedClock struct {
	now time.Time
}

// NewFixed returns a clock pinned to the given instant.
func NewFixed(t time.Time) *FixedClock {
	return &FixedClock{now: t.UTC()}
}

func (f *FixedClock) Now() time.Time {
	return f.now
}

// Advance moves the fixed clock forward by d.
func (f *FixedClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
