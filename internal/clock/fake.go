package clock

import "time"

// FakeClock is a Clock that only moves when told to, so rule priority and
// audit ordering tests can pin exact timestamps. Not safe for concurrent
// Advance calls.
type FakeClock struct {
	now time.Time
}

// NewFakeClock starts a fake clock frozen at t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
