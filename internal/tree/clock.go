package tree

// Clock is a monotonic counter. The Store keeps one for node ids, one for
// edge ids and one for change sequence numbers.
//
// The first call to Next on a new Clock returns 1.
type Clock struct {
	seq int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next returns the next value and advances the clock.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq
}

// Observe advances the clock so that Next never returns v or anything
// below it. Values below Current are ignored.
func (c *Clock) Observe(v int64) {
	if v > c.seq {
		c.seq = v
	}
}
