//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig describes the outside world of the host simulation.
type HostConfig struct {
	// Line carries the SCI. Stdin and stdout are used when nil.
	Line io.ReadWriter
	// TickHz is the system tick rate; 1000 when zero.
	TickHz int
	// Ticks stops the tick source after this many ticks (0 = run forever).
	Ticks uint64
}

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	sci    *LineSCI
	lcd    *HD44780
	glass  *lcdGlass
	t      *hostTime
}

// New returns a host HAL on stdio with a 1 kHz tick.
func New() HAL {
	return newHostHAL(HostConfig{})
}

func newHostHAL(cfg HostConfig) *hostHAL {
	line := cfg.Line
	if line == nil {
		line = stdio{}
	}
	// Stdout is the serial line, so the log goes to stderr.
	logger := &hostLogger{w: os.Stderr}
	lcd := NewHD44780()
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		sci:    NewLineSCI(line, logger),
		lcd:    lcd,
		glass:  newLCDGlass(lcd),
		t:      newHostTime(cfg.TickHz, cfg.Ticks),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) SCI() SCI         { return h.sci }
func (h *hostHAL) LCD() CharLCD     { return h.lcd }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.glass.fb} }
func (h *hostHAL) Time() Time       { return h.t }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.set(true, "led: HIGH")
}

func (l *hostLED) Low() {
	l.set(false, "led: LOW")
}

func (l *hostLED) set(on bool, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on == on {
		return
	}
	l.on = on
	l.logger.WriteLineString(msg)
}
