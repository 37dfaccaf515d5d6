package lcd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	rt "github.com/dprg/libdprg/kernel"
	"github.com/dprg/libdprg/mrmos/kernel"
)

// fakeLCD stays busy for busyTicks clock ticks after each instruction.
type fakeLCD struct {
	clock     *testClock
	busyTicks uint64
	until     uint64
	ops       []string
}

func (f *fakeLCD) now() uint64 {
	if f.clock == nil {
		return 0
	}
	return f.clock.Now()
}

func (f *fakeLCD) Busy() bool { return f.now() < f.until }

func (f *fakeLCD) WriteCommand(c byte) {
	f.ops = append(f.ops, fmt.Sprintf("c%02X", c))
	f.until = f.now() + f.busyTicks
}

func (f *fakeLCD) WriteData(d byte) {
	f.ops = append(f.ops, "d"+string(rune(d)))
}

func (f *fakeLCD) trace() string { return strings.Join(f.ops, " ") }

type testClock struct {
	n atomic.Uint64
}

func (c *testClock) Now() uint64 { return c.n.Load() }
func (c *testClock) tick()       { c.n.Add(1) }

type nopYielder struct{}

func (nopYielder) Yield() {}

func newReady(hw *fakeLCD) *Channel {
	c := New(hw, nopYielder{}, nil)
	c.available = true
	return c
}

func send(t *testing.T, c *Channel, s string) {
	t.Helper()
	for i := 0; i < len(s); i++ {
		if err := c.TrySend(s[i]); err != nil {
			t.Fatalf("TrySend(%q) err = %v", s[i], err)
		}
	}
}

// drain runs the service until it goes idle or n ticks pass.
func drain(c *Channel, n int) {
	for i := 0; i < n && c.state != stateOff; i++ {
		c.Service()
	}
}

func TestServiceWritesOneBytePerTick(t *testing.T) {
	hw := &fakeLCD{}
	c := newReady(hw)
	send(t, c, "ABC")

	c.Service()
	if got := hw.trace(); got != "dA" {
		t.Fatalf("after one tick ops = %q, want %q", got, "dA")
	}
	drain(c, 10)
	if got := hw.trace(); got != "dA dB dC" {
		t.Fatalf("ops = %q, want %q", got, "dA dB dC")
	}
	if s := c.State(); s != "off" {
		t.Fatalf("State() = %s, want off", s)
	}
}

func TestServiceWrapsToSecondLine(t *testing.T) {
	hw := &fakeLCD{}
	c := newReady(hw)
	send(t, c, strings.Repeat("x", Columns)+"yz")
	drain(c, 100)

	want := strings.TrimSpace(strings.Repeat("dx ", Columns)) + " cC0 dy dz"
	if got := hw.trace(); got != want {
		t.Fatalf("ops = %q, want %q", got, want)
	}
}

func TestServiceTabMovesToSecondLine(t *testing.T) {
	hw := &fakeLCD{}
	c := newReady(hw)
	// Past the tab the column count is beyond the wrap point.
	send(t, c, "a\t"+strings.Repeat("b", Columns+1))
	drain(c, 100)

	want := "da cC0 " + strings.TrimSpace(strings.Repeat("db ", Columns+1))
	if got := hw.trace(); got != want {
		t.Fatalf("ops = %q, want %q", got, want)
	}
}

func TestServiceNewlineClearsAndHomes(t *testing.T) {
	hw := &fakeLCD{}
	c := newReady(hw)
	send(t, c, "ab\ncd")
	drain(c, 100)

	if got, want := hw.trace(), "da db c01 c06 c02 dc dd"; got != want {
		t.Fatalf("ops = %q, want %q", got, want)
	}
}

func TestTrailingNewlineWaitsForNextLine(t *testing.T) {
	hw := &fakeLCD{}
	c := newReady(hw)
	send(t, c, "ab\n")
	for i := 0; i < 10; i++ {
		c.Service()
	}
	if got, want := hw.trace(), "da db"; got != want {
		t.Fatalf("ops = %q, want %q", got, want)
	}
	if s := c.State(); s != "clear" {
		t.Fatalf("State() = %s, want clear", s)
	}

	send(t, c, "z")
	drain(c, 10)
	if got, want := hw.trace(), "da db c01 c06 c02 dz"; got != want {
		t.Fatalf("ops = %q, want %q", got, want)
	}
}

func TestBusyControllerKeepsByteQueued(t *testing.T) {
	clock := &testClock{}
	hw := &fakeLCD{clock: clock, until: 2}
	c := newReady(hw)
	send(t, c, "q")

	c.Service()
	if len(hw.ops) != 0 || c.Pending() != 1 {
		t.Fatalf("busy tick wrote %q, pending %d", hw.trace(), c.Pending())
	}
	clock.tick()
	clock.tick()
	c.Service()
	if got := hw.trace(); got != "dq" {
		t.Fatalf("ops = %q, want %q", got, "dq")
	}
	if n := c.Pending(); n != 0 {
		t.Fatalf("Pending() = %d, want 0", n)
	}
}

func TestUnavailablePanelIsNotServiced(t *testing.T) {
	hw := &fakeLCD{}
	c := New(hw, nopYielder{}, nil)
	send(t, c, "hi")
	c.Service()
	if len(hw.ops) != 0 {
		t.Fatalf("ops = %q before init", hw.trace())
	}
	if s := c.State(); s != "off" {
		t.Fatalf("State() = %s, want off", s)
	}
}

func TestTrySendFull(t *testing.T) {
	c := New(&fakeLCD{}, nopYielder{}, nil)
	for i := 0; i < BufferSize-1; i++ {
		if err := c.TrySend('.'); err != nil {
			t.Fatalf("TrySend() #%d err = %v", i, err)
		}
	}
	if err := c.TrySend('.'); err != rt.ErrFull {
		t.Fatalf("TrySend() err = %v, want %v", err, rt.ErrFull)
	}
	if _, err := c.TryRecv(); err != rt.ErrEmpty {
		t.Fatalf("TryRecv() err = %v, want %v", err, rt.ErrEmpty)
	}
}

func TestInitTaskProgramsControllerAndExits(t *testing.T) {
	clock := &testClock{}
	hw := &fakeLCD{clock: clock, busyTicks: 1}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var k *kernel.Kernel
	var c *Channel
	k = kernel.New(clock, kernel.Config{Idle: func() {
		clock.tick()
		// The tick hook, as the dispatcher would run it.
		c.Service()
		if len(k.Tasks()) == 1 && c.Pending() == 0 {
			cancel()
		}
	}})
	c = New(hw, k, nil)

	if _, err := c.Start(k); err != nil {
		t.Fatalf("Start() err = %v", err)
	}
	// Queued before the panel is ready; written once it is.
	send(t, c, "ok")

	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() err = %v, want %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the init task")
	}

	want := "c30 c30 c30 c38 c08 c01 c06 c0C do dk"
	if got := hw.trace(); got != want {
		t.Fatalf("ops = %q, want %q", got, want)
	}
	if !c.Available() {
		t.Fatal("Available() = false after init")
	}
	if clock.Now() < 7 {
		t.Fatalf("init finished at tick %d, want at least 7", clock.Now())
	}
}
