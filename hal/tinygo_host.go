//go:build tinygo && !baremetal

package hal

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"
)

type tinyGoHostHAL struct {
	logger *tinyGoHostLogger
	led    *tinyGoHostLED
	sci    *LineSCI
	lcd    *HD44780
	t      *tinyGoHostTime
}

// New returns a TinyGo-on-host HAL implementation.
//
// This is used by `tinygo run` targets like linux/wasm where there is no MCU
// pin mapping. The SCI is stdio and the LCD is the software model.
func New() HAL {
	l := &tinyGoHostLogger{}
	sci := NewLineSCI(stdioLine{}, l)
	go sci.Run(context.Background())
	return &tinyGoHostHAL{
		logger: l,
		led:    &tinyGoHostLED{logger: l},
		sci:    sci,
		lcd:    NewHD44780(),
		t:      newTinyGoHostTime(),
	}
}

func (h *tinyGoHostHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHostHAL) LED() LED         { return h.led }
func (h *tinyGoHostHAL) SCI() SCI         { return h.sci }
func (h *tinyGoHostHAL) LCD() CharLCD     { return h.lcd }
func (h *tinyGoHostHAL) Display() Display { return nullDisplay{} }
func (h *tinyGoHostHAL) Time() Time       { return h.t }

type stdioLine struct{}

func (stdioLine) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioLine) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

type tinyGoHostTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoHostTime() *tinyGoHostTime {
	t := &tinyGoHostTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoHostTime) Ticks() <-chan uint64 { return t.ch }

// println goes to stderr, away from the SCI on stdout.
type tinyGoHostLogger struct{}

func (l *tinyGoHostLogger) WriteLineString(s string) {
	println(s)
}

func (l *tinyGoHostLogger) WriteLineBytes(b []byte) {
	println(string(b))
}

type tinyGoHostLED struct {
	on     bool
	logger *tinyGoHostLogger
}

func (l *tinyGoHostLED) High() {
	l.on = true
	l.logger.WriteLineString(fmt.Sprintf("led: HIGH (tinygo/%s)", runtime.GOOS))
}

func (l *tinyGoHostLED) Low() {
	l.on = false
	l.logger.WriteLineString(fmt.Sprintf("led: LOW (tinygo/%s)", runtime.GOOS))
}
