// Package lcd drives an HD44780 character display from an output FIFO
// serviced by the system tick, so writers never wait on the controller.
package lcd

import (
	"github.com/dprg/libdprg/hal"
	rt "github.com/dprg/libdprg/kernel"
	"github.com/dprg/libdprg/mrmos/kernel"
)

const (
	Columns = 24
	Rows    = 2

	// BufferSize is the output FIFO size.
	BufferSize = 100

	initStackSize = 256
)

// HD44780 instruction bytes.
const (
	cmdClear      = 0x01
	cmdHome       = 0x02
	cmdEntryInc   = 0x06
	cmdDisplayOff = 0x08
	cmdDisplayOn  = 0x0C
	cmdFunc8Bit   = 0x30
	cmdFunc2Line  = 0x38
	cmdLine2      = 0xC0
)

type state uint8

const (
	stateOff state = iota
	stateWrite
	stateClear
	stateEntry
	stateHome
)

func (s state) String() string {
	switch s {
	case stateOff:
		return "off"
	case stateWrite:
		return "write"
	case stateClear:
		return "clear"
	case stateEntry:
		return "entry"
	case stateHome:
		return "home"
	default:
		return "unknown"
	}
}

// Yielder gives up the processor while a blocking call waits.
type Yielder interface {
	Yield()
}

// Scheduler is what the one-shot init task needs from the kernel.
type Scheduler interface {
	Yielder
	Sleep(ms uint64)
	Spawn(entry func(arg int), arg, stackSize int) (kernel.PID, error)
	TerminateSelf() error
}

// Channel is the display output channel. Service runs from the system tick
// hook; everything else runs on tasks.
type Channel struct {
	hw  hal.CharLCD
	y   Yielder
	irq *rt.Interrupts
	out *rt.FIFO

	// Guarded by irq.
	state     state
	count     int
	available bool
}

// New creates a channel on hw. The panel stays unavailable until the init
// task started by Start has run.
func New(hw hal.CharLCD, y Yielder, irq *rt.Interrupts) *Channel {
	if irq == nil {
		irq = &rt.Interrupts{}
	}
	return &Channel{
		hw:  hw,
		y:   y,
		irq: irq,
		out: rt.NewFIFO(BufferSize),
	}
}

// Start spawns the controller init task.
func (c *Channel) Start(s Scheduler) (kernel.PID, error) {
	return s.Spawn(func(int) {
		c.initDisplay(s)
		c.irq.Disable()
		c.available = true
		if c.state == stateOff && c.out.Len() > 0 {
			c.state = stateWrite
		}
		c.irq.Enable()
		_ = s.TerminateSelf()
	}, 0, initStackSize)
}

func (c *Channel) initDisplay(s Scheduler) {
	c.command(cmdFunc8Bit)
	s.Sleep(5)
	c.command(cmdFunc8Bit)
	s.Sleep(1)
	c.command(cmdFunc8Bit)
	s.Sleep(1)

	for _, cmd := range []byte{cmdFunc2Line, cmdDisplayOff, cmdClear, cmdEntryInc, cmdDisplayOn} {
		c.command(cmd)
		c.busyWait(s)
	}
}

func (c *Channel) busyWait(y Yielder) {
	for c.hw.Busy() {
		y.Yield()
	}
}

// command writes an instruction if the controller is ready.
func (c *Channel) command(b byte) bool {
	if c.hw.Busy() {
		return false
	}
	c.hw.WriteCommand(b)
	return true
}

func (c *Channel) data(b byte) bool {
	if c.hw.Busy() {
		return false
	}
	c.hw.WriteData(b)
	return true
}

// Available reports whether the init task has finished.
func (c *Channel) Available() bool {
	c.irq.Disable()
	defer c.irq.Enable()
	return c.available
}

// Service does at most one unit of display work. A busy controller leaves
// the pending byte queued for the next tick.
//
// Tab moves to the second line, newline clears the display and homes the
// cursor, and output wraps to the second line after Columns characters.
func (c *Channel) Service() {
	switch c.state {
	case stateWrite:
		b, err := c.out.Peek()
		if err != nil {
			c.state = stateOff
			return
		}
		switch {
		case b == '\t':
			if c.command(cmdLine2) {
				_, _ = c.out.Read()
				c.count = Columns + 1
			}
		case b == '\n':
			_, _ = c.out.Read()
			c.state = stateClear
		case c.count == Columns:
			if c.command(cmdLine2) {
				c.count++
			}
		default:
			if c.data(b) {
				_, _ = c.out.Read()
				c.count++
			}
		}
	case stateClear:
		// The clear waits for the next line's first byte.
		if c.out.Len() > 0 && c.command(cmdClear) {
			c.state = stateEntry
		}
	case stateEntry:
		if c.command(cmdEntryInc) {
			c.state = stateHome
		}
	case stateHome:
		if c.command(cmdHome) {
			c.state = stateWrite
			c.count = 0
		}
	}
}

// TrySend queues b for the display.
func (c *Channel) TrySend(b byte) error {
	c.irq.Disable()
	defer c.irq.Enable()

	if err := c.out.Write(b); err != nil {
		return err
	}
	if c.state == stateOff && c.available {
		c.state = stateWrite
	}
	return nil
}

// Send queues b, yielding until there is room.
func (c *Channel) Send(b byte) {
	for c.TrySend(b) != nil {
		c.y.Yield()
	}
}

// TryRecv always fails: the display has no input.
func (c *Channel) TryRecv() (byte, error) {
	return 0, rt.ErrEmpty
}

func (c *Channel) Write(p []byte) (int, error) {
	for _, b := range p {
		c.Send(b)
	}
	return len(p), nil
}

// Pending returns the number of queued bytes.
func (c *Channel) Pending() int {
	return c.out.Len()
}

// State names the service state: off, write, clear, entry or home.
func (c *Channel) State() string {
	c.irq.Disable()
	defer c.irq.Enable()
	return c.state.String()
}
