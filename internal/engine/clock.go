package engine

import "sync/atomic"

// Clock is the monotonic revision counter of the engine.
//
// Every published state is stamped with a strictly increasing revision.
// Subscribers use it to order the changes they receive, since notifications
// from concurrent callers may arrive out of order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next revision and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current revision without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
