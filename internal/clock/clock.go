// Package clock lets code that needs "today" be driven by a fixed time in tests.
package clock

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.T
}

// Today returns the calendar date of c.Now() in its own location.
func Today(c Clock) civil.Date {
	return civil.DateOf(c.Now())
}
