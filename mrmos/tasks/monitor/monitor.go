// Package monitor is the interactive command task on the serial line.
package monitor

import (
	"errors"
	"fmt"

	"github.com/google/shlex"

	"github.com/dprg/libdprg/mrmos/kernel"
	"github.com/dprg/libdprg/mrmos/services/console"
	"github.com/dprg/libdprg/mrmos/tasks/blink"
)

const (
	DefaultPrompt = "mrm> "
	maxLine       = 80
	stackSize     = 2048
)

// Scheduler is the kernel surface the monitor reports on.
type Scheduler interface {
	Tasks() []kernel.TaskInfo
	Terminate(pid kernel.PID) error
	IdleCount() uint64
}

type Clock interface {
	Now() uint64
}

// SerialStats reports receive-side counters of the serial channel.
type SerialStats interface {
	Buffered() int
	Overruns() uint64
}

// DisplayStats reports the LCD service state.
type DisplayStats interface {
	State() string
	Pending() int
}

type Config struct {
	Kernel  Scheduler
	Clock   Clock
	Console *console.Console

	// Optional.
	LED     *blink.Switch
	Serial  SerialStats
	Display DisplayStats
	Prompt  string
}

type Monitor struct {
	cfg Config
	reg *registry

	line   []byte
	lastCR bool
}

func New(cfg Config) (*Monitor, error) {
	if cfg.Kernel == nil || cfg.Clock == nil || cfg.Console == nil {
		return nil, errors.New("monitor: kernel, clock and console are required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	m := &Monitor{cfg: cfg, reg: newRegistry()}
	if err := registerCommands(m.reg); err != nil {
		return nil, err
	}
	return m, nil
}

// StackSize is the stack to spawn Run with.
func (m *Monitor) StackSize() int { return stackSize }

// Run is the task entry: prompt, read a line, execute it, forever.
func (m *Monitor) Run(int) {
	for {
		m.printf("%s", m.cfg.Prompt)
		line, err := m.ReadLine()
		if err != nil {
			m.printf("monitor: %v\n", err)
			return
		}
		if err := m.Exec(line); err != nil {
			m.printf("error: %v\n", err)
		}
	}
}

// ReadLine reads one line from standard input with echo and backspace.
// CR, LF and CR LF all end a line.
func (m *Monitor) ReadLine() (string, error) {
	m.line = m.line[:0]
	c := m.cfg.Console
	for {
		b, err := c.Getc(console.Stdin)
		if err != nil {
			return "", err
		}
		lastCR := m.lastCR
		m.lastCR = b == '\r'

		switch {
		case b == '\n' && lastCR:
			continue
		case b == '\r' || b == '\n':
			_ = c.Putc(console.Stdout, '\n')
			return string(m.line), nil
		case b == 0x08 || b == 0x7f:
			if len(m.line) > 0 {
				m.line = m.line[:len(m.line)-1]
				_, _ = c.Write(console.Stdout, []byte("\b \b"))
			}
		case b < 0x20:
		default:
			if len(m.line) < maxLine {
				m.line = append(m.line, b)
				_ = c.Putc(console.Stdout, b)
			}
		}
	}
}

// Exec runs one command line.
func (m *Monitor) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := m.reg.resolve(args[0])
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.Run(m, args[1:])
}

func (m *Monitor) printf(format string, args ...any) {
	m.cfg.Console.Printf(console.Stdout, format, args...)
}
