//go:build tinygo && baremetal

package hal

import (
	"io"
	"machine"
	"time"

	"tinygo.org/x/drivers/hd44780"
)

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
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

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

type uartLogger struct {
	w io.ByteWriter
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.w.WriteByte(s[i])
	}
	l.w.WriteByte('\r')
	l.w.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.w.WriteByte(b[i])
	}
	l.w.WriteByte('\r')
	l.w.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// pinBus is an HD44780 8-bit parallel bus on GPIO pins with RW wired, so
// the busy flag can be read back.
type pinBus struct {
	data [8]machine.Pin
	en   machine.Pin
	rs   machine.Pin
	rw   machine.Pin
}

var _ hd44780.Buser = (*pinBus)(nil)

func newPinBus(data [8]machine.Pin, en, rs, rw machine.Pin) *pinBus {
	b := &pinBus{data: data, en: en, rs: rs, rw: rw}
	out := machine.PinConfig{Mode: machine.PinOutput}
	for _, p := range b.data {
		p.Configure(out)
	}
	en.Configure(out)
	rs.Configure(out)
	rw.Configure(out)
	rw.Low()
	return b
}

func (b *pinBus) SetCommandMode(set bool) {
	if set {
		b.rs.Low()
	} else {
		b.rs.High()
	}
}

func (b *pinBus) WriteOnly() bool { return false }

func (b *pinBus) Write(p []byte) (int, error) {
	b.rw.Low()
	for _, v := range p {
		b.en.High()
		for i, pin := range b.data {
			pin.Set(v&(1<<i) != 0)
		}
		b.en.Low()
	}
	return len(p), nil
}

func (b *pinBus) Read(p []byte) (int, error) {
	in := machine.PinConfig{Mode: machine.PinInput}
	for _, pin := range b.data {
		pin.Configure(in)
	}
	b.rw.High()
	for n := range p {
		b.en.High()
		var v byte
		for i, pin := range b.data {
			if pin.Get() {
				v |= 1 << i
			}
		}
		b.en.Low()
		p[n] = v
	}
	b.rw.Low()
	out := machine.PinConfig{Mode: machine.PinOutput}
	for _, pin := range b.data {
		pin.Configure(out)
	}
	return len(p), nil
}

// busLCD drives a CharLCD over any HD44780 bus.
type busLCD struct {
	bus    hd44780.Buser
	status [1]byte
}

func (l *busLCD) Busy() bool {
	if l.bus.WriteOnly() {
		return false
	}
	l.bus.SetCommandMode(true)
	l.bus.Read(l.status[:])
	return l.status[0]&hd44780.BUSY != 0
}

func (l *busLCD) WriteCommand(c byte) {
	l.bus.SetCommandMode(true)
	l.bus.Write([]byte{c})
}

func (l *busLCD) WriteData(d byte) {
	l.bus.SetCommandMode(false)
	l.bus.Write([]byte{d})
}
