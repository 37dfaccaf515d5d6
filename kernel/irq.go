package kernel

import "sync"

// Interrupts models the interrupt mask of a single-core CPU.
//
// Interrupt handlers are delivered through Raise and run to completion one
// at a time. Task code that shares state with a handler brackets the
// access with Disable and Enable; while interrupts are disabled no handler
// runs. A task must not yield with interrupts disabled.
type Interrupts struct {
	mu sync.Mutex
}

// Disable masks interrupt delivery until the matching Enable.
func (i *Interrupts) Disable() {
	i.mu.Lock()
}

// Enable unmasks interrupt delivery.
func (i *Interrupts) Enable() {
	i.mu.Unlock()
}

// Raise runs handler in interrupt context. It waits while interrupts are
// disabled or another handler is running.
func (i *Interrupts) Raise(handler func()) {
	if handler == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	handler()
}
