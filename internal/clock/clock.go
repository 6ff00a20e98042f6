package clock

import "time"

// Clock supplies the current time. Services and the scheduler take a Clock
// instead of calling time.Now directly so scheduling math is deterministic
// under test.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}
