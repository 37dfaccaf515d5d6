//go:build !tinygo

package hal

import (
	"context"
	"time"
)

// hostTime turns wall-clock time into a tick stream. Ticks the consumer
// is too slow to take are dropped rather than queued without bound.
type hostTime struct {
	ch    chan uint64
	seq   uint64
	limit uint64
	dur   time.Duration

	last time.Time
	acc  time.Duration
}

func newHostTime(hz int, limit uint64) *hostTime {
	if hz <= 0 {
		hz = 1000
	}
	return &hostTime{
		ch:    make(chan uint64, 1024),
		limit: limit,
		dur:   time.Second / time.Duration(hz),
	}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

func (t *hostTime) run(ctx context.Context) error {
	ticker := time.NewTicker(t.dur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if t.step() {
				close(t.ch)
				return nil
			}
		}
	}
}

// step emits the ticks owed since the last call and reports whether the
// tick limit has been reached.
func (t *hostTime) step() bool {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		return t.stepN(1)
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.dur)
	if ticks == 0 {
		return false
	}
	t.acc = t.acc % t.dur
	return t.stepN(ticks)
}

func (t *hostTime) stepN(n uint64) bool {
	for i := uint64(0); i < n; i++ {
		if t.limit > 0 && t.seq >= t.limit {
			return true
		}
		select {
		case t.ch <- t.seq + 1:
			t.seq++
		default:
		}
	}
	return t.limit > 0 && t.seq >= t.limit
}
