package kernel

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrFull is returned by FIFO.Write when no free slot is left.
	ErrFull = errors.New("fifo full")
	// ErrEmpty is returned by FIFO.Read and FIFO.Peek when nothing is queued.
	ErrEmpty = errors.New("fifo empty")
)

// FIFO is a fixed-size single-producer, single-consumer circular byte queue.
//
// One slot is always left unused so that in == out means empty and
// "in+1 == out" means full. A FIFO of size N therefore holds at most N-1
// bytes.
//
// There is no locking. Exactly one context may call Write and exactly one
// (possibly different) context may call Read and Peek. Anything that needs
// both sides from one context, like dropping the oldest byte on overflow,
// has to run with interrupts disabled.
type FIFO struct {
	_   [0]func() // prevent accidental copying.
	in  atomic.Uint32
	out atomic.Uint32
	buf []byte
}

// NewFIFO returns an empty FIFO backed by size bytes.
func NewFIFO(size int) *FIFO {
	if size < 2 {
		panic("kernel: fifo size must be at least 2")
	}
	return &FIFO{buf: make([]byte, size)}
}

func (q *FIFO) incr(i uint32) uint32 {
	i++
	if i >= uint32(len(q.buf)) {
		i = 0
	}
	return i
}

// Write enqueues b, returning ErrFull if the FIFO has no free slot.
func (q *FIFO) Write(b byte) error {
	in := q.in.Load()
	next := q.incr(in)
	if next == q.out.Load() {
		return ErrFull
	}
	q.buf[in] = b
	q.in.Store(next)
	return nil
}

// Peek returns the oldest byte without removing it.
func (q *FIFO) Peek() (byte, error) {
	out := q.out.Load()
	if out == q.in.Load() {
		return 0, ErrEmpty
	}
	return q.buf[out], nil
}

// Read removes and returns the oldest byte.
func (q *FIFO) Read() (byte, error) {
	out := q.out.Load()
	if out == q.in.Load() {
		return 0, ErrEmpty
	}
	b := q.buf[out]
	q.out.Store(q.incr(out))
	return b, nil
}

// Len reports the number of queued bytes. The value is a snapshot and is
// meant for diagnostics; callers must not base FIFO decisions on it.
func (q *FIFO) Len() int {
	n := int(q.in.Load()) - int(q.out.Load())
	if n < 0 {
		n += len(q.buf)
	}
	return n
}

// Cap reports how many bytes the FIFO can hold.
func (q *FIFO) Cap() int { return len(q.buf) - 1 }

// Size reports the size of the backing buffer.
func (q *FIFO) Size() int { return len(q.buf) }
