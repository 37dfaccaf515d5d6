package kernel

// Sleep yields until at least ms ticks have passed. The caller keeps its
// turn in the ring while it waits.
func (k *Kernel) Sleep(ms uint64) {
	wake := k.clock.Now() + ms
	for k.clock.Now() < wake {
		k.Yield()
	}
}

// SleepUntil yields until the clock reaches mark+delay and returns that
// deadline. Feeding the result back in as the next mark gives a period
// that does not drift with the time spent between calls.
func (k *Kernel) SleepUntil(mark, delay uint64) uint64 {
	wake := mark + delay
	for k.clock.Now() < wake {
		k.Yield()
	}
	return wake
}
