//go:build !tinygo

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/creack/pty"
	"github.com/jacobsa/go-serial/serial"
	"golang.org/x/term"
)

// openLine picks what carries the SCI: a serial port, a new pseudo
// terminal, or this process's own terminal in raw mode.
func openLine(stop context.CancelFunc, usePTY bool, port string, baud uint) (io.ReadWriter, func(), error) {
	switch {
	case port != "":
		p, err := serial.Open(serial.OpenOptions{
			PortName:        port,
			BaudRate:        baud,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", port, err)
		}
		return p, func() { p.Close() }, nil

	case usePTY:
		ptmx, tty, err := pty.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open pty: %w", err)
		}
		// The terminal program on the other side does its own echo.
		if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
			ptmx.Close()
			tty.Close()
			return nil, nil, fmt.Errorf("raw pty: %w", err)
		}
		fmt.Fprintf(os.Stderr, "serial line on %s\n", tty.Name())
		return ptmx, func() {
			ptmx.Close()
			tty.Close()
		}, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return stdioLine{}, func() {}, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, fmt.Errorf("raw terminal: %w", err)
	}
	restored := false
	return rawStdio{stop: stop}, func() {
		if !restored {
			restored = true
			_ = term.Restore(fd, old)
		}
	}, nil
}

type stdioLine struct{}

func (stdioLine) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioLine) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// rawStdio is the terminal in raw mode, where ^C arrives as a byte rather
// than a signal.
type rawStdio struct {
	stop context.CancelFunc
}

func (r rawStdio) Read(p []byte) (int, error) {
	n, err := os.Stdin.Read(p)
	if i := bytes.IndexByte(p[:n], 0x03); i >= 0 {
		r.stop()
		return i, err
	}
	return n, err
}

func (rawStdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
