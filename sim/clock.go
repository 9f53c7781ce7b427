// Package sim provides the time-travel-capable clock, in-memory store and
// replay harness used to run historical data through the unmodified
// detection engine.
package sim

import (
	"time"

	"github.com/dnldd/breakout/shared"
	"go.uber.org/atomic"
)

// VirtualClock is a clock whose current time is advanced explicitly by the
// simulation harness.
type VirtualClock struct {
	now *atomic.Time
}

// Ensure the virtual clock implements the Clock interface.
var _ shared.Clock = (*VirtualClock)(nil)

// NewVirtualClock initializes a new virtual clock at the provided start time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		now: atomic.NewTime(start),
	}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	return c.now.Load()
}

// SetNow advances the virtual clock to the provided time.
func (c *VirtualClock) SetNow(now time.Time) {
	c.now.Store(now)
}
