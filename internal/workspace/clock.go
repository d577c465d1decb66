package workspace

import "sync/atomic"

// Clock issues the versions stamped on committed records.
// Values returned by Next must strictly increase.
type Clock interface {
	Next() int64
	Current() int64
}

// LogicalClock is a monotonic counter safe for concurrent use.
type LogicalClock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *LogicalClock {
	return &LogicalClock{}
}

// NewClockAt creates a clock resuming after start.
func NewClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value issued without incrementing.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
