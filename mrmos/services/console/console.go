// Package console maps file descriptors onto the character devices:
// standard input and output are the serial line, standard error is the LCD.
package console

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/drivers"
)

// Dest is a logical destination.
type Dest int

const (
	Stdin  Dest = 0
	Stdout Dest = 1
	Stderr Dest = 2
)

var (
	ErrWriteOnly = errors.New("console: destination is write-only")
	ErrBadDest   = errors.New("console: bad destination")
)

// Device is a character channel with blocking send and non-blocking receive.
type Device interface {
	Send(b byte)
	TrySend(b byte) error
	TryRecv() (byte, error)
}

// Serial is the primary channel: a character device that is also a
// TinyGo UART, so drivers written against drivers.UART can share it.
type Serial interface {
	Device
	drivers.UART
}

type Console struct {
	sci Serial
	lcd Device
}

func New(sci Serial, lcd Device) *Console {
	return &Console{sci: sci, lcd: lcd}
}

func (c *Console) device(fd Dest) (Device, error) {
	switch fd {
	case Stdin, Stdout:
		if c.sci == nil {
			return nil, fmt.Errorf("fd %d: %w", fd, ErrBadDest)
		}
		return c.sci, nil
	case Stderr:
		if c.lcd == nil {
			return nil, fmt.Errorf("fd %d: %w", fd, ErrBadDest)
		}
		return c.lcd, nil
	default:
		return nil, fmt.Errorf("fd %d: %w", fd, ErrBadDest)
	}
}

// Putc writes b to fd, waiting for room. On the serial line a newline goes
// out as CR LF.
func (c *Console) Putc(fd Dest, b byte) error {
	d, err := c.device(fd)
	if err != nil {
		return err
	}
	if fd != Stderr && b == '\n' {
		d.Send('\r')
	}
	d.Send(b)
	return nil
}

// Getc waits for the next byte from the serial line.
func (c *Console) Getc(fd Dest) (byte, error) {
	if fd == Stderr {
		return 0, ErrWriteOnly
	}
	if _, err := c.device(fd); err != nil {
		return 0, err
	}
	var b [1]byte
	for {
		n, err := c.sci.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

func (c *Console) Write(fd Dest, p []byte) (int, error) {
	for i, b := range p {
		if err := c.Putc(fd, b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Read fills p from the serial line, waiting for every byte.
func (c *Console) Read(fd Dest, p []byte) (int, error) {
	for i := range p {
		b, err := c.Getc(fd)
		if err != nil {
			return i, err
		}
		p[i] = b
	}
	return len(p), nil
}

// Writer returns fd as an io.Writer.
func (c *Console) Writer(fd Dest) io.Writer {
	return fdWriter{c: c, fd: fd}
}

// Printf formats to fd.
func (c *Console) Printf(fd Dest, format string, args ...any) {
	_, _ = fmt.Fprintf(c.Writer(fd), format, args...)
}

type fdWriter struct {
	c  *Console
	fd Dest
}

func (w fdWriter) Write(p []byte) (int, error) { return w.c.Write(w.fd, p) }
