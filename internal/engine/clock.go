package engine

// Clock is the logical clock that stamps firings.
//
// Every firing gets a strictly increasing seq number. Traces and the run log
// order by seq, never by wall-clock time, so the same instruction set always
// yields the same numbering.
//
// The engine is single-threaded, so Clock needs no synchronisation.
type Clock struct {
	seq int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last seq handed out, or 0 if none.
func (c *Clock) Current() int64 {
	return c.seq
}
