// Package app brings the system up on a HAL: clock, tick dispatcher,
// scheduler, device channels and the standard tasks.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dprg/libdprg/hal"
	"github.com/dprg/libdprg/internal/buildinfo"
	rt "github.com/dprg/libdprg/kernel"
	"github.com/dprg/libdprg/mrmos/kernel"
	"github.com/dprg/libdprg/mrmos/services/console"
	"github.com/dprg/libdprg/mrmos/services/lcd"
	"github.com/dprg/libdprg/mrmos/services/sci"
	"github.com/dprg/libdprg/mrmos/tasks/blink"
	"github.com/dprg/libdprg/mrmos/tasks/monitor"
)

type Config struct {
	// StackPool is the total task stack budget in bytes.
	StackPool int
	SCI       sci.Config
	// Heartbeat is the LED half-period in ticks; 0 disables it.
	Heartbeat uint64
	// Monitor starts the command task on the serial line.
	Monitor bool
	// Banner prints the version on the serial line and the LCD.
	Banner bool
}

// DefaultConfig is the configuration of a stock board.
func DefaultConfig() Config {
	return Config{
		StackPool: kernel.DefaultStackPool,
		Heartbeat: blink.DefaultPeriod,
		Monitor:   true,
		Banner:    true,
	}
}

// System is one booted instance.
type System struct {
	Clock      *rt.Clock
	Dispatcher *rt.Dispatcher
	IRQ        *rt.Interrupts
	Kernel     *kernel.Kernel

	SCI     *sci.Channel
	LCD     *lcd.Channel
	Console *console.Console
	LED     *blink.Switch

	h   hal.HAL
	log hal.Logger
}

// New wires the system to h and spawns the standard tasks. Nothing runs
// until Run.
func New(h hal.HAL, cfg Config) (*System, error) {
	if h == nil {
		return nil, errors.New("app: nil HAL")
	}
	s := &System{
		Clock: &rt.Clock{},
		IRQ:   &rt.Interrupts{},
		h:     h,
		log:   h.Logger(),
	}
	bootDiagStart(s.log)
	bootDiagSetStep("kernel")
	s.Dispatcher = rt.NewDispatcher(s.Clock)

	s.Kernel = kernel.New(s.Clock, kernel.Config{
		StackPool: cfg.StackPool,
		OnPanic:   s.reportPanic,
	})

	bootDiagSetStep("sci")
	if port := h.SCI(); port != nil {
		s.SCI = sci.New(port, s.Kernel, s.IRQ, cfg.SCI)
		port.Attach(func() { s.IRQ.Raise(s.SCI.Interrupt) })
	}
	bootDiagSetStep("lcd")
	if panel := h.LCD(); panel != nil {
		s.LCD = lcd.New(panel, s.Kernel, s.IRQ)
		s.Dispatcher.SetHook(rt.RoleSystem, s.LCD.Service)
	}
	s.Console = newConsole(s.SCI, s.LCD)

	if led := h.LED(); led != nil {
		s.LED = blink.NewSwitch(led)
	}

	bootDiagSetStep("tasks")
	if err := s.spawnTasks(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// newConsole keeps a missing device a nil interface rather than a typed nil.
func newConsole(sc *sci.Channel, lc *lcd.Channel) *console.Console {
	var serial console.Serial
	var display console.Device
	if sc != nil {
		serial = sc
	}
	if lc != nil {
		display = lc
	}
	return console.New(serial, display)
}

func (s *System) spawnTasks(cfg Config) error {
	if s.LCD != nil {
		if _, err := s.LCD.Start(s.Kernel); err != nil {
			return fmt.Errorf("app: lcd init task: %w", err)
		}
	}
	if cfg.Banner {
		if _, err := s.Kernel.Spawn(s.banner, 0, kernel.DefaultStackSize); err != nil {
			return fmt.Errorf("app: banner task: %w", err)
		}
	}
	if cfg.Heartbeat > 0 && s.LED != nil {
		hb := &blink.Heartbeat{LED: s.LED, Sleep: s.Kernel, Period: cfg.Heartbeat}
		if _, err := s.Kernel.Spawn(hb.Run, 0, 512); err != nil {
			return fmt.Errorf("app: heartbeat task: %w", err)
		}
	}
	if cfg.Monitor && s.SCI != nil {
		m, err := monitor.New(monitor.Config{
			Kernel:  s.Kernel,
			Clock:   s.Clock,
			Console: s.Console,
			LED:     s.LED,
			Serial:  s.SCI,
			Display: lcdStats(s.LCD),
		})
		if err != nil {
			return err
		}
		if _, err := s.Kernel.Spawn(m.Run, 0, m.StackSize()); err != nil {
			return fmt.Errorf("app: monitor task: %w", err)
		}
	}
	return nil
}

func lcdStats(c *lcd.Channel) monitor.DisplayStats {
	if c == nil {
		return nil
	}
	return c
}

func (s *System) banner(int) {
	if s.SCI != nil {
		s.Console.Printf(console.Stdout, "libdprg %s\n", buildinfo.String())
	}
	if s.LCD != nil {
		s.Console.Printf(console.Stderr, "libdprg\t%s", buildinfo.Short())
	}
}

// Run dispatches ticks and schedules tasks until ctx is done, the tick
// source stops, or the kernel halts on its own. A stopped tick source is a
// clean shutdown.
func (s *System) Run(ctx context.Context) error {
	if s.log != nil {
		s.log.WriteLineString("libdprg: boot " + buildinfo.Short())
	}

	bootDiagSetStep("run")

	g, gctx := errgroup.WithContext(ctx)
	kctx, stop := context.WithCancel(gctx)
	defer stop()

	var ticks <-chan uint64
	if t := s.h.Time(); t != nil {
		ticks = t.Ticks()
	}
	if ticks != nil {
		g.Go(func() error {
			defer stop()
			return s.Dispatcher.Run(gctx, ticks, s.IRQ)
		})
	}
	g.Go(func() error {
		err := s.Kernel.Run(kctx)
		if err != nil && errors.Is(err, kctx.Err()) && ctx.Err() == nil {
			return nil
		}
		return err
	})

	err := g.Wait()
	if s.log != nil {
		s.log.WriteLineString(fmt.Sprintf("libdprg: halted at tick %d, idle %d", s.Clock.Now(), s.Kernel.IdleCount()))
	}
	return err
}

// Run boots the default system on h and runs it until ctx is done.
func Run(ctx context.Context, h hal.HAL) error {
	s, err := New(h, DefaultConfig())
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
