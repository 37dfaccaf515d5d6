package monitor

import (
	"errors"
	"strings"
	"testing"

	rt "github.com/dprg/libdprg/kernel"
	"github.com/dprg/libdprg/mrmos/kernel"
	"github.com/dprg/libdprg/mrmos/services/console"
	"github.com/dprg/libdprg/mrmos/tasks/blink"
)

type fakeDevice struct {
	sent []byte
	in   []byte
}

func (d *fakeDevice) Send(b byte) { d.sent = append(d.sent, b) }

func (d *fakeDevice) TrySend(b byte) error {
	d.Send(b)
	return nil
}

func (d *fakeDevice) TryRecv() (byte, error) {
	if len(d.in) == 0 {
		return 0, rt.ErrEmpty
	}
	b := d.in[0]
	d.in = d.in[1:]
	return b, nil
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if len(d.in) == 0 {
		panic("fakeDevice: out of input")
	}
	n := copy(p, d.in)
	d.in = d.in[n:]
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.sent = append(d.sent, p...)
	return len(p), nil
}

func (d *fakeDevice) Buffered() int { return len(d.in) }

type fixedClock uint64

func (c fixedClock) Now() uint64 { return uint64(c) }

type nopLED struct{}

func (nopLED) High() {}
func (nopLED) Low()  {}

type stats struct{}

func (stats) Buffered() int    { return 3 }
func (stats) Overruns() uint64 { return 1 }
func (stats) State() string    { return "write" }
func (stats) Pending() int     { return 5 }

type harness struct {
	m   *Monitor
	k   *kernel.Kernel
	sci *fakeDevice
	lcd *fakeDevice
	led *blink.Switch
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		k:   kernel.New(fixedClock(0), kernel.Config{}),
		sci: &fakeDevice{},
		lcd: &fakeDevice{},
		led: blink.NewSwitch(nopLED{}),
	}
	m, err := New(Config{
		Kernel:  h.k,
		Clock:   fixedClock(12345),
		Console: console.New(h.sci, h.lcd),
		LED:     h.led,
		Serial:  stats{},
		Display: stats{},
	})
	if err != nil {
		t.Fatalf("New() err = %v", err)
	}
	h.m = m
	return h
}

func (h *harness) out() string {
	s := string(h.sci.sent)
	h.sci.sent = nil
	return s
}

func TestPsListsRing(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 2; i++ {
		if _, err := h.k.Spawn(func(int) {}, 0, 512); err != nil {
			t.Fatalf("Spawn() err = %v", err)
		}
	}
	if err := h.m.Exec("ps"); err != nil {
		t.Fatalf("Exec(ps) err = %v", err)
	}
	out := h.out()
	lines := strings.Split(strings.TrimSpace(out), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("ps printed %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "1 new") || !strings.Contains(lines[2], "2 new") {
		t.Fatalf("ps output:\n%s", out)
	}
}

func TestKill(t *testing.T) {
	h := newHarness(t)
	_, _ = h.k.Spawn(func(int) {}, 0, 512)
	pid, _ := h.k.Spawn(func(int) {}, 0, 512)

	if err := h.m.Exec("kill 2"); err != nil {
		t.Fatalf("Exec(kill 2) err = %v", err)
	}
	if _, err := h.k.FindByPID(pid); !errors.Is(err, kernel.ErrNotFound) {
		t.Fatalf("FindByPID(%d) err = %v, want %v", pid, err, kernel.ErrNotFound)
	}
	if err := h.m.Exec("kill 2"); !errors.Is(err, kernel.ErrNotFound) {
		t.Fatalf("second kill err = %v, want %v", err, kernel.ErrNotFound)
	}
	if err := h.m.Exec("kill x"); err == nil {
		t.Fatal("kill x err = nil")
	}
}

func TestUptimeAndStat(t *testing.T) {
	h := newHarness(t)
	if err := h.m.Exec("uptime"); err != nil {
		t.Fatalf("Exec(uptime) err = %v", err)
	}
	if got, want := h.out(), "up 12.345s (12345 ticks), idle 0\r\n"; got != want {
		t.Fatalf("uptime = %q, want %q", got, want)
	}
	if err := h.m.Exec("stat"); err != nil {
		t.Fatalf("Exec(stat) err = %v", err)
	}
	if got, want := h.out(), "sci: 3 buffered, 1 overruns\r\n"; got != want {
		t.Fatalf("stat = %q, want %q", got, want)
	}
}

func TestLCDWritesToStderr(t *testing.T) {
	h := newHarness(t)
	if err := h.m.Exec(`lcd "hello world" 42`); err != nil {
		t.Fatalf("Exec(lcd) err = %v", err)
	}
	if got, want := string(h.lcd.sent), "\nhello world 42"; got != want {
		t.Fatalf("lcd got %q, want %q", got, want)
	}
	if err := h.m.Exec("lcd"); err != nil {
		t.Fatalf("Exec(lcd) err = %v", err)
	}
	if got, want := h.out(), "lcd: write, 5 pending\r\n"; got != want {
		t.Fatalf("lcd status = %q, want %q", got, want)
	}
}

func TestLED(t *testing.T) {
	h := newHarness(t)
	_ = h.m.Exec("led on")
	if !h.led.IsOn() {
		t.Fatal("led on left the LED off")
	}
	_ = h.m.Exec("led toggle")
	if h.led.IsOn() {
		t.Fatal("led toggle left the LED on")
	}
	if err := h.m.Exec("led blink"); err == nil {
		t.Fatal("led blink err = nil")
	}
}

func TestExecErrors(t *testing.T) {
	h := newHarness(t)
	if err := h.m.Exec("   "); err != nil {
		t.Fatalf("Exec(blank) err = %v", err)
	}
	if err := h.m.Exec("frobnicate"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("Exec(frobnicate) err = %v", err)
	}
	if err := h.m.Exec(`lcd "unterminated`); err == nil {
		t.Fatal("Exec with open quote err = nil")
	}
	if err := h.m.Exec("? ps"); err != nil {
		t.Fatalf("Exec(? ps) err = %v", err)
	}
	if got, want := h.out(), "usage: ps\r\nList tasks in ring order.\r\n"; got != want {
		t.Fatalf("help ps = %q, want %q", got, want)
	}
}

func TestReadLineEditsAndEchoes(t *testing.T) {
	h := newHarness(t)
	h.sci.in = []byte("pz\x7fs\r\nver\n")

	line, err := h.m.ReadLine()
	if err != nil || line != "ps" {
		t.Fatalf("ReadLine() = %q, %v, want %q, nil", line, err, "ps")
	}
	if got, want := h.out(), "pz\b \bs\r\n"; got != want {
		t.Fatalf("echo = %q, want %q", got, want)
	}

	// The LF of CR LF does not produce an empty line.
	line, err = h.m.ReadLine()
	if err != nil || line != "ver" {
		t.Fatalf("ReadLine() = %q, %v, want %q, nil", line, err, "ver")
	}
}
