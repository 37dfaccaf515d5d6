package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dprg/libdprg/internal/buildinfo"
	"github.com/dprg/libdprg/mrmos/kernel"
	"github.com/dprg/libdprg/mrmos/services/console"
)

func registerCommands(r *registry) error {
	for _, cmd := range []command{
		{Name: "help", Aliases: []string{"?"}, Usage: "help [command]", Desc: "Show available commands.", Run: cmdHelp},
		{Name: "ps", Usage: "ps", Desc: "List tasks in ring order.", Run: cmdPs},
		{Name: "kill", Usage: "kill <pid>", Desc: "Terminate a task.", Run: cmdKill},
		{Name: "uptime", Usage: "uptime", Desc: "Show clock ticks and idle turns.", Run: cmdUptime},
		{Name: "lcd", Usage: "lcd [text...]", Desc: "Show text on the LCD, or its status.", Run: cmdLCD},
		{Name: "led", Usage: "led [on|off|toggle]", Desc: "Set or show the status LED.", Run: cmdLED},
		{Name: "stat", Usage: "stat", Desc: "Show serial channel counters.", Run: cmdStat},
		{Name: "ver", Aliases: []string{"version"}, Usage: "ver", Desc: "Show build info.", Run: cmdVer},
	} {
		if err := r.register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func cmdHelp(m *Monitor, args []string) error {
	if len(args) == 0 {
		for _, name := range m.reg.names() {
			cmd, _ := m.reg.resolve(name)
			m.printf("%-8s %s\n", cmd.Name, cmd.Desc)
		}
		return nil
	}
	if len(args) != 1 {
		return errors.New("usage: help [command]")
	}
	cmd, ok := m.reg.resolve(args[0])
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	m.printf("usage: %s\n%s\n", cmd.Usage, cmd.Desc)
	return nil
}

func cmdPs(m *Monitor, _ []string) error {
	m.printf("%5s %-8s %6s\n", "PID", "STATE", "STACK")
	for _, ti := range m.cfg.Kernel.Tasks() {
		mark := ""
		if ti.Idle {
			mark = " idle"
		}
		if ti.Current {
			mark += " *"
		}
		m.printf("%5d %-8s %6d%s\n", ti.PID, ti.State, ti.StackSize, mark)
	}
	return nil
}

func cmdKill(m *Monitor, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: kill <pid>")
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("kill: bad pid %q", args[0])
	}
	if err := m.cfg.Kernel.Terminate(kernel.PID(n)); err != nil {
		return fmt.Errorf("kill %d: %w", n, err)
	}
	return nil
}

func cmdUptime(m *Monitor, _ []string) error {
	now := m.cfg.Clock.Now()
	m.printf("up %d.%03ds (%d ticks), idle %d\n", now/1000, now%1000, now, m.cfg.Kernel.IdleCount())
	return nil
}

func cmdLCD(m *Monitor, args []string) error {
	if len(args) == 0 {
		if m.cfg.Display == nil {
			return errors.New("lcd: no display")
		}
		m.printf("lcd: %s, %d pending\n", m.cfg.Display.State(), m.cfg.Display.Pending())
		return nil
	}
	// Newline clears the panel before the text.
	_, err := m.cfg.Console.Write(console.Stderr, []byte("\n"+strings.Join(args, " ")))
	return err
}

func cmdLED(m *Monitor, args []string) error {
	led := m.cfg.LED
	if led == nil {
		return errors.New("led: no LED")
	}
	if len(args) == 0 {
		if led.IsOn() {
			m.printf("led: on\n")
		} else {
			m.printf("led: off\n")
		}
		return nil
	}
	switch args[0] {
	case "on":
		led.On()
	case "off":
		led.Off()
	case "toggle":
		led.Toggle()
	default:
		return errors.New("usage: led [on|off|toggle]")
	}
	return nil
}

func cmdStat(m *Monitor, _ []string) error {
	if m.cfg.Serial == nil {
		return errors.New("stat: no serial channel")
	}
	m.printf("sci: %d buffered, %d overruns\n", m.cfg.Serial.Buffered(), m.cfg.Serial.Overruns())
	return nil
}

func cmdVer(m *Monitor, _ []string) error {
	m.printf("libdprg %s\n", buildinfo.String())
	return nil
}
