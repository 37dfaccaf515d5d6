//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/dprg/libdprg/app"
	"github.com/dprg/libdprg/hal"
)

func main() {
	var (
		headless  bool
		hz        int
		scale     int
		host      hal.HostConfig
		usePTY    bool
		port      string
		baud      uint
		noMonitor bool
		heartbeat uint64
	)
	flag.BoolVar(&headless, "headless", false, "Run without a window; LCD changes go to the log.")
	flag.IntVar(&hz, "hz", 60, "LCD refresh rate in headless mode.")
	flag.IntVar(&scale, "scale", 4, "Window pixels per LCD pixel.")
	flag.Uint64Var(&host.Ticks, "ticks", 0, "Stop after N system ticks (0 = run forever).")
	flag.IntVar(&host.TickHz, "tick-hz", 1000, "System tick rate.")
	flag.BoolVar(&usePTY, "pty", false, "Put the serial line on a new pseudo terminal.")
	flag.StringVar(&port, "port", "", "Put the serial line on this serial device.")
	flag.UintVar(&baud, "baud", 9600, "Baud rate for -port.")
	flag.BoolVar(&noMonitor, "no-monitor", false, "Do not start the monitor on the serial line.")
	flag.Uint64Var(&heartbeat, "heartbeat", 500, "LED half-period in ticks (0 = off).")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	line, closeLine, err := openLine(stop, usePTY, port, baud)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLine()
	host.Line = line

	cfg := app.DefaultConfig()
	cfg.Monitor = !noMonitor
	cfg.Heartbeat = heartbeat
	run := func(ctx context.Context, h hal.HAL) error {
		s, err := app.New(h, cfg)
		if err != nil {
			return err
		}
		return s.Run(ctx)
	}

	if headless {
		err = hal.RunHeadless(ctx, run, hal.HeadlessConfig{HostConfig: host, Hz: hz})
	} else {
		err = hal.RunWindow(ctx, run, hal.WindowConfig{HostConfig: host, Scale: scale})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		closeLine()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
