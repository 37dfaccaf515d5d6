package sci

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/dprg/libdprg/hal"
	"github.com/dprg/libdprg/kernel"
)

// fakeSCI transmits instantly: TDRE never drops.
type fakeSCI struct {
	status hal.SCIStatus
	rdr    byte
	txie   bool
	sent   []byte
}

func newFakeSCI() *fakeSCI {
	return &fakeSCI{status: hal.SCIStatusTDRE | hal.SCIStatusTC}
}

func (f *fakeSCI) Status() hal.SCIStatus { return f.status }

func (f *fakeSCI) ReadData() byte {
	f.status &^= hal.SCIStatusRDRF
	return f.rdr
}

func (f *fakeSCI) WriteData(b byte)       { f.sent = append(f.sent, b) }
func (f *fakeSCI) SetTxInterrupt(on bool) { f.txie = on }
func (f *fakeSCI) Attach(func())          {}

// arrive latches b into the receive register and runs the handler.
func (f *fakeSCI) arrive(c *Channel, b byte) {
	f.rdr = b
	f.status |= hal.SCIStatusRDRF
	c.Interrupt()
}

type yieldFunc func()

func (y yieldFunc) Yield() { y() }

func TestReceiveOverflowKeepsNewest(t *testing.T) {
	hw := newFakeSCI()
	c := New(hw, yieldFunc(func() {}), nil, Config{RxSize: 8})

	for b := byte(1); b <= 7; b++ {
		hw.arrive(c, b)
	}
	if n := c.Buffered(); n != 7 {
		t.Fatalf("Buffered() = %d, want 7", n)
	}
	hw.arrive(c, 8)

	if n := c.Overruns(); n != 1 {
		t.Fatalf("Overruns() = %d, want 1", n)
	}
	for want := byte(2); want <= 8; want++ {
		b, err := c.TryRecv()
		if err != nil {
			t.Fatalf("TryRecv() err = %v, want %d", err, want)
		}
		if b != want {
			t.Fatalf("TryRecv() = %d, want %d", b, want)
		}
	}
	if _, err := c.TryRecv(); err != kernel.ErrEmpty {
		t.Fatalf("TryRecv() err = %v, want %v", err, kernel.ErrEmpty)
	}
}

func TestTransmitDrainsThenDisarms(t *testing.T) {
	hw := newFakeSCI()
	c := New(hw, yieldFunc(func() {}), nil, Config{})

	// TDRE with nothing queued is not a transmit request.
	c.Interrupt()
	if len(hw.sent) != 0 {
		t.Fatalf("sent %q before any TrySend", hw.sent)
	}

	for _, b := range []byte("ab") {
		if err := c.TrySend(b); err != nil {
			t.Fatalf("TrySend(%q) err = %v", b, err)
		}
	}
	if !hw.txie {
		t.Fatal("transmit interrupt not armed after TrySend")
	}

	c.Interrupt()
	c.Interrupt()
	if string(hw.sent) != "ab" {
		t.Fatalf("sent %q, want %q", hw.sent, "ab")
	}
	if !hw.txie {
		t.Fatal("transmit interrupt disarmed while the last byte was in flight")
	}

	c.Interrupt()
	if hw.txie {
		t.Fatal("transmit interrupt still armed with an empty FIFO")
	}

	// Re-arms on the next byte.
	_ = c.TrySend('c')
	if !hw.txie {
		t.Fatal("transmit interrupt not re-armed")
	}
	c.Interrupt()
	if string(hw.sent) != "abc" {
		t.Fatalf("sent %q, want %q", hw.sent, "abc")
	}
}

func TestTrySendFull(t *testing.T) {
	hw := newFakeSCI()
	c := New(hw, yieldFunc(func() {}), nil, Config{TxSize: 4})
	for i := 0; i < 3; i++ {
		if err := c.TrySend('x'); err != nil {
			t.Fatalf("TrySend() #%d err = %v", i, err)
		}
	}
	if err := c.TrySend('x'); err != kernel.ErrFull {
		t.Fatalf("TrySend() err = %v, want %v", err, kernel.ErrFull)
	}
}

func TestSendYieldsUntilDrained(t *testing.T) {
	hw := newFakeSCI()
	var c *Channel
	yields := 0
	// Each yield lets one transmit interrupt happen.
	c = New(hw, yieldFunc(func() {
		yields++
		c.Interrupt()
	}), nil, Config{TxSize: 2})

	n, err := c.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v, want 5, nil", n, err)
	}
	for i := 0; i < 3; i++ {
		c.Interrupt()
	}
	if string(hw.sent) != "hello" {
		t.Fatalf("sent %q, want %q", hw.sent, "hello")
	}
	if yields == 0 {
		t.Fatal("Send never yielded on a full FIFO")
	}
}

func TestReadYieldsUntilData(t *testing.T) {
	hw := newFakeSCI()
	var c *Channel
	input := []byte("go!")
	c = New(hw, yieldFunc(func() {
		if len(input) > 0 {
			hw.arrive(c, input[0])
			input = input[1:]
		}
	}), nil, Config{})

	if b := c.Recv(); b != 'g' {
		t.Fatalf("Recv() = %q, want 'g'", b)
	}
	hw.arrive(c, input[0])
	hw.arrive(c, input[1])
	input = nil

	buf := make([]byte, 8)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("Read() err = %v", err)
	}
	if string(buf[:n]) != "o!" {
		t.Fatalf("Read() = %q, want %q", buf[:n], "o!")
	}
}

func TestConcurrentReceiveNeverDuplicatesOrReorders(t *testing.T) {
	const (
		rounds   = 40
		perRound = 255
	)
	hw := newFakeSCI()
	irq := &kernel.Interrupts{}
	c := New(hw, yieldFunc(runtime.Gosched), irq, Config{RxSize: 8})

	roundDone := make(chan struct{})
	go func() {
		for r := 0; r < rounds; r++ {
			for b := 1; b <= perRound; b++ {
				irq.Raise(func() { hw.arrive(c, byte(b)) })
				if b%16 == 0 {
					runtime.Gosched()
				}
			}
			<-roundDone
		}
	}()

	type result struct {
		received int
		err      string
	}
	done := make(chan result, 1)
	go func() {
		var res result
		for r := 0; r < rounds; r++ {
			prev := 0
			for prev != perRound {
				b, err := c.TryRecv()
				if err != nil {
					runtime.Gosched()
					continue
				}
				if int(b) <= prev {
					res.err = fmt.Sprintf("round %d: byte %d arrived after %d", r, b, prev)
					done <- res
					return
				}
				prev = int(b)
				res.received++
			}
			roundDone <- struct{}{}
		}
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != "" {
			t.Fatal(res.err)
		}
		if total := uint64(res.received) + c.Overruns(); total != rounds*perRound {
			t.Fatalf("received %d + overruns %d = %d, want %d", res.received, c.Overruns(), total, rounds*perRound)
		}
		if c.Buffered() != 0 {
			t.Fatalf("Buffered() = %d after the last byte, want 0", c.Buffered())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("receiver did not see every round")
	}
}
