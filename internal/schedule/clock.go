package schedule

import "sync/atomic"

// Clock is the monotonic logical counter that stamps submissions.
//
// Every task is stamped with a strictly increasing seq number, so ordering
// among equal-priority tasks is submission order and never depends on
// wall-clock reads.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable: each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
