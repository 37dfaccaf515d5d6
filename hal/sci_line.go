package hal

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// LineSCI emulates an SCI on top of a byte stream: a terminal, a pseudo
// terminal or a real serial port. Each received byte raises the receive
// interrupt; each transmitted byte is written to the line before TDRE is
// set again.
type LineSCI struct {
	line io.ReadWriter
	log  Logger

	mu      sync.Mutex
	status  SCIStatus
	rdr     byte
	txie    bool
	handler func()

	tx   chan byte
	kick chan struct{}
}

// NewLineSCI returns an SCI bound to line. log may be nil.
func NewLineSCI(line io.ReadWriter, log Logger) *LineSCI {
	return &LineSCI{
		line:   line,
		log:    log,
		status: SCIStatusTDRE | SCIStatusTC,
		tx:     make(chan byte, 1),
		kick:   make(chan struct{}, 1),
	}
}

func (s *LineSCI) Status() SCIStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *LineSCI) ReadData() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status &^= SCIStatusRDRF | SCIStatusOR
	return s.rdr
}

func (s *LineSCI) WriteData(b byte) {
	s.mu.Lock()
	s.status &^= SCIStatusTDRE | SCIStatusTC
	s.mu.Unlock()

	select {
	case s.tx <- b:
	default:
		// Transmit register still loaded: the new byte overwrites nothing
		// and is dropped, as on hardware written too early.
	}
}

func (s *LineSCI) SetTxInterrupt(on bool) {
	s.mu.Lock()
	s.txie = on
	s.mu.Unlock()

	if on {
		// May be called with interrupts masked; deliver from Run.
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

func (s *LineSCI) Attach(handler func()) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Run drives the transmitter until ctx is done and starts the receiver. The
// receiver blocks in the line's Read and is left behind when Run returns.
func (s *LineSCI) Run(ctx context.Context) error {
	go s.receive(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-s.tx:
			if _, err := s.line.Write([]byte{b}); err != nil {
				return fmt.Errorf("sci: write line: %w", err)
			}
			s.mu.Lock()
			s.status |= SCIStatusTDRE | SCIStatusTC
			s.mu.Unlock()
			if s.txPending() {
				s.interrupt()
			}
		case <-s.kick:
			if s.txPending() {
				s.interrupt()
			}
		}
	}
}

func (s *LineSCI) receive(ctx context.Context) {
	buf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := s.line.Read(buf)
		for _, b := range buf[:n] {
			s.mu.Lock()
			if s.status&SCIStatusRDRF != 0 {
				s.status |= SCIStatusOR
			}
			s.rdr = b
			s.status |= SCIStatusRDRF
			s.mu.Unlock()
			s.interrupt()
		}
		if err != nil {
			if err != io.EOF && s.log != nil {
				s.log.WriteLineString(fmt.Sprintf("sci: read line: %v", err))
			}
			return
		}
		if n == 0 {
			// Board UARTs return immediately when nothing is buffered.
			time.Sleep(time.Millisecond)
		}
	}
}

func (s *LineSCI) txPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txie && s.status&SCIStatusTDRE != 0
}

func (s *LineSCI) interrupt() {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h()
	}
}
