// Package clock supplies the current time so order timestamps and event
// envelopes can be pinned in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock. Times are always returned in UTC.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f().UTC()
}

func NewSystem() Clock {
	return Func(time.Now)
}

// NewFixed returns a clock stopped at t.
func NewFixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
