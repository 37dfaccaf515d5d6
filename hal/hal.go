package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// SCIStatus mirrors the status bits of the 68332 SCI status register.
type SCIStatus uint16

const (
	SCIStatusTDRE SCIStatus = 0x0100 // transmit data register empty
	SCIStatusTC   SCIStatus = 0x0080 // transmit complete
	SCIStatusRDRF SCIStatus = 0x0040 // receive data register full
	SCIStatusOR   SCIStatus = 0x0008 // receiver overrun
)

// SCI is an asynchronous serial port with one receive and one transmit
// data register.
//
// The attached handler is the port's interrupt vector: it is called when
// RDRF becomes set, and when TDRE is set while the transmit interrupt is
// enabled. The HAL calls it from its own goroutine and never while one of
// the methods below is executing on the caller's goroutine, so methods may
// be called from inside the handler.
type SCI interface {
	Status() SCIStatus
	// ReadData returns the received byte and clears RDRF.
	ReadData() byte
	// WriteData loads the transmit register and clears TDRE.
	WriteData(b byte)
	// SetTxInterrupt enables or disables the TDRE interrupt.
	SetTxInterrupt(on bool)
	Attach(handler func())
}

// CharLCD is an HD44780-compatible character display controller in 8-bit
// bus mode.
type CharLCD interface {
	// Busy reports the controller's busy flag.
	Busy() bool
	WriteCommand(c byte)
	WriteData(d byte)
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a base tick stream, one value per system tick.
//
// The channel is closed when the source has been told to stop after a
// fixed number of ticks.
type Time interface {
	Ticks() <-chan uint64
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	SCI() SCI
	LCD() CharLCD
	Display() Display
	Time() Time
}

type nullDisplay struct{}

func (nullDisplay) Framebuffer() Framebuffer { return nil }
