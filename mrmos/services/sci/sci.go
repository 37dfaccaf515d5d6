// Package sci is the interrupt-driven serial channel: receive and transmit
// FIFOs between the SCI interrupt handler and task code.
package sci

import (
	"sync/atomic"

	"github.com/dprg/libdprg/hal"
	"github.com/dprg/libdprg/kernel"

	"tinygo.org/x/drivers"
)

// DefaultBufferSize is the default size of each FIFO.
const DefaultBufferSize = 128

// Yielder gives up the processor while a blocking call waits.
type Yielder interface {
	Yield()
}

type Config struct {
	RxSize int
	TxSize int
}

// Channel is the serial channel. Send, Recv, Read and Write may only be
// used by one task at a time; the handler side is Interrupt.
type Channel struct {
	hw  hal.SCI
	y   Yielder
	irq *kernel.Interrupts

	rx *kernel.FIFO
	tx *kernel.FIFO

	// Transmit interrupt armed; changed only with interrupts masked.
	armed bool

	overruns atomic.Uint64
}

var _ drivers.UART = (*Channel)(nil)

// New creates a channel on hw. The caller attaches Interrupt to hw through
// irq. A nil irq gives the channel a private interrupt mask.
func New(hw hal.SCI, y Yielder, irq *kernel.Interrupts, cfg Config) *Channel {
	if cfg.RxSize <= 0 {
		cfg.RxSize = DefaultBufferSize
	}
	if cfg.TxSize <= 0 {
		cfg.TxSize = DefaultBufferSize
	}
	if irq == nil {
		irq = &kernel.Interrupts{}
	}
	return &Channel{
		hw:  hw,
		y:   y,
		irq: irq,
		rx:  kernel.NewFIFO(cfg.RxSize),
		tx:  kernel.NewFIFO(cfg.TxSize),
	}
}

// Interrupt services RDRF and TDRE. It runs in interrupt context.
func (c *Channel) Interrupt() {
	st := c.hw.Status()

	if st&hal.SCIStatusRDRF != 0 {
		b := c.hw.ReadData()
		if c.rx.Write(b) != nil {
			// Full: drop the oldest byte so the newest is kept.
			_, _ = c.rx.Read()
			_ = c.rx.Write(b)
			c.overruns.Add(1)
		}
	}

	if st&hal.SCIStatusTDRE != 0 && c.armed {
		b, err := c.tx.Read()
		if err != nil {
			c.armed = false
			c.hw.SetTxInterrupt(false)
			return
		}
		c.hw.WriteData(b)
	}
}

// TrySend queues b for transmission.
func (c *Channel) TrySend(b byte) error {
	c.irq.Disable()
	defer c.irq.Enable()

	if err := c.tx.Write(b); err != nil {
		return err
	}
	if !c.armed {
		c.armed = true
		c.hw.SetTxInterrupt(true)
	}
	return nil
}

// TryRecv takes the oldest received byte.
func (c *Channel) TryRecv() (byte, error) {
	// The handler may discard from rx on overflow.
	c.irq.Disable()
	defer c.irq.Enable()
	return c.rx.Read()
}

// Send queues b, yielding until there is room.
func (c *Channel) Send(b byte) {
	for c.TrySend(b) != nil {
		c.y.Yield()
	}
}

// Recv returns the next received byte, yielding until one arrives.
func (c *Channel) Recv() byte {
	for {
		b, err := c.TryRecv()
		if err == nil {
			return b
		}
		c.y.Yield()
	}
}

// Read blocks for the first byte and then returns whatever else has
// already arrived.
func (c *Channel) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = c.Recv()
	n := 1
	for n < len(p) {
		b, err := c.TryRecv()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (c *Channel) Write(p []byte) (int, error) {
	for _, b := range p {
		c.Send(b)
	}
	return len(p), nil
}

// Buffered returns the number of received bytes waiting.
func (c *Channel) Buffered() int {
	return c.rx.Len()
}

// Overruns returns how many received bytes were discarded on overflow.
func (c *Channel) Overruns() uint64 {
	return c.overruns.Load()
}
