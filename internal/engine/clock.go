package engine

import "sync/atomic"

// Clock is a monotonic logical clock for invocation ordering.
//
// Every recorded invocation is stamped with a strictly increasing seq number
// from this clock. Run history is ordered by seq, never by wall time.
//
// Clock is safe for concurrent use, although the engine only calls Next from
// the goroutine running the evaluation.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
