package hal

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

type testLine struct {
	r *io.PipeReader

	mu  sync.Mutex
	out bytes.Buffer
}

func (l *testLine) Read(p []byte) (int, error) { return l.r.Read(p) }

func (l *testLine) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Write(p)
}

func (l *testLine) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.String()
}

func TestLineSCIReceive(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewLineSCI(&testLine{r: pr}, nil)

	got := make(chan byte, 8)
	s.Attach(func() {
		if s.Status()&SCIStatusRDRF != 0 {
			got <- s.ReadData()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	go pw.Write([]byte("ok"))

	for _, want := range []byte("ok") {
		select {
		case b := <-got:
			if b != want {
				t.Fatalf("received %q, want %q", b, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for receive interrupt")
		}
	}
	if s.Status()&SCIStatusRDRF != 0 {
		t.Fatal("RDRF still set after ReadData")
	}
}

func TestLineSCITransmit(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	line := &testLine{r: pr}
	s := NewLineSCI(line, nil)

	if s.Status()&SCIStatusTDRE == 0 {
		t.Fatal("TDRE clear after reset")
	}

	var mu sync.Mutex
	queue := []byte("abc")
	s.Attach(func() {
		if s.Status()&SCIStatusTDRE == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(queue) == 0 {
			s.SetTxInterrupt(false)
			return
		}
		s.WriteData(queue[0])
		queue = queue[1:]
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.SetTxInterrupt(true)

	deadline := time.Now().Add(2 * time.Second)
	for line.String() != "abc" {
		if time.Now().After(deadline) {
			t.Fatalf("line = %q, want %q", line.String(), "abc")
		}
		time.Sleep(time.Millisecond)
	}
}
