//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// AppFunc runs the OS on h until ctx is done or the tick source stops.
type AppFunc func(ctx context.Context, h HAL) error

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	HostConfig
	// Hz is how often the LCD glass is checked for changes to log.
	Hz int
}

// RunHeadless runs the OS without opening a window. LCD changes are
// written to the log.
func RunHeadless(ctx context.Context, run AppFunc, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := newHostHAL(cfg.HostConfig)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return h.sci.Run(ctx) })
	g.Go(func() error { return h.t.run(ctx) })
	g.Go(func() error {
		defer cancel()
		return run(ctx, h)
	})
	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				h.logGlass()
				return nil
			case <-t.C:
				h.logGlass()
			}
		}
	})
	return g.Wait()
}

func (h *hostHAL) logGlass() {
	lines, changed := h.glass.refresh()
	if !changed {
		return
	}
	for i, line := range lines {
		h.logger.WriteLineString(fmt.Sprintf("lcd%d: |%s|", i+1, strings.TrimRight(string(printable(line)), " ")))
	}
}
