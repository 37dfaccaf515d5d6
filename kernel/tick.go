package kernel

import (
	"context"
	"sync/atomic"
)

// DefaultTickHz is the dispatcher rate the rest of the system assumes when
// it talks about milliseconds.
const DefaultTickHz = 1000

// Role selects one of the two hook slots of a Dispatcher.
type Role uint8

const (
	// RoleSystem is the hook slot used by system services (LCD output).
	RoleSystem Role = iota
	// RoleUser is the hook slot left to application code.
	RoleUser
)

func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

type hook struct {
	fn func()
}

// Dispatcher is the periodic tick interrupt: every firing advances the
// clock and then calls the system hook and the user hook, in that order.
//
// Hooks run in interrupt context. They must be short, must not block and
// must not yield.
type Dispatcher struct {
	clock  *Clock
	system atomic.Pointer[hook]
	user   atomic.Pointer[hook]
}

// NewDispatcher creates a tick dispatcher that advances clock.
func NewDispatcher(clock *Clock) *Dispatcher {
	return &Dispatcher{clock: clock}
}

// Clock returns the clock advanced by the dispatcher.
func (d *Dispatcher) Clock() *Clock { return d.clock }

// SetHook installs fn in the given slot, replacing whatever was there.
// A nil fn clears the slot.
func (d *Dispatcher) SetHook(role Role, fn func()) {
	var h *hook
	if fn != nil {
		h = &hook{fn: fn}
	}
	switch role {
	case RoleSystem:
		d.system.Store(h)
	case RoleUser:
		d.user.Store(h)
	}
}

// Tick is the interrupt handler body.
func (d *Dispatcher) Tick() {
	d.clock.advance()
	if h := d.system.Load(); h != nil {
		h.fn()
	}
	if h := d.user.Load(); h != nil {
		h.fn()
	}
}

// Run fires the dispatcher once per value received from ticks, each firing
// delivered through irq. It returns when ctx is done or ticks is closed.
func (d *Dispatcher) Run(ctx context.Context, ticks <-chan uint64, irq *Interrupts) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			irq.Raise(d.Tick)
		}
	}
}
