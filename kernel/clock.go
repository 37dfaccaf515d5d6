package kernel

import "sync/atomic"

// Clock is the system's monotonic tick counter.
//
// It is advanced by exactly one per Dispatcher.Tick (1 ms at the default
// 1 kHz rate) and read from anywhere. Deadlines are compared with plain
// ordered comparisons, so a wrap of the 64-bit counter is not handled.
type Clock struct {
	ticks atomic.Uint64
}

// Now returns the current tick count.
func (c *Clock) Now() uint64 {
	return c.ticks.Load()
}

// Reset sets the clock back to zero.
func (c *Clock) Reset() {
	c.ticks.Store(0)
}

// Elapsed reports whether the clock has moved strictly past mark.
func (c *Clock) Elapsed(mark uint64) bool {
	return mark < c.ticks.Load()
}

// Plus returns the mark delay ticks from now.
func (c *Clock) Plus(delay uint64) uint64 {
	return c.ticks.Load() + delay
}

// MarkPlus returns mark advanced by delay ticks.
func MarkPlus(mark, delay uint64) uint64 {
	return mark + delay
}

func (c *Clock) advance() uint64 {
	return c.ticks.Add(1)
}
