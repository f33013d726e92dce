package engine

import "time"

// Clock is the engine's time source: a non-decreasing offset from an
// arbitrary origin. Millisecond resolution is sufficient.
type Clock interface {
	Now() time.Duration
}

// SystemClock reads the monotonic wall clock relative to its creation.
//
// Thread-safety: SystemClock is immutable and safe for concurrent use.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock whose origin is now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the time elapsed since the clock was created.
// time.Since uses the monotonic reading, so wall-clock jumps are ignored.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}
