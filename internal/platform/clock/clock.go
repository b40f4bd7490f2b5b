// Package clock abstracts time.Now() so services that reason about
// due dates and calendar occurrences can be tested deterministically.
package clock

import "time"

// Clock supplies the current time to time-dependent services.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the standard time package.
type Real struct{}

// Now returns the current local time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock pinned to a single instant. Intended for tests.
type Fixed struct {
	Instant time.Time
}

// Now returns the pinned instant.
func (f Fixed) Now() time.Time {
	return f.Instant
}
