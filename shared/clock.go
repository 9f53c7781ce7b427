package shared

import (
	"time"
)

// Clock defines the requirements for fetching the current time. The live
// path uses the system clock, the simulation harness substitutes a settable
// virtual clock so historical replays share the detection code unchanged.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a clock backed by the system time.
type SystemClock struct{}

// Ensure the system clock implements the Clock interface.
var _ Clock = (*SystemClock)(nil)

// Now returns the current system time in UTC.
func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}
