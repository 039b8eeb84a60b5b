// Package system provides the wall clock used outside of tests.
package system

import "time"

// Clock implements agent.Clock using time.Now in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to microseconds, matching
// Postgres timestamptz precision so stored and returned values compare equal.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
