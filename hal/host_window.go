//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"

	"github.com/dprg/libdprg/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
)

// WindowConfig controls the desktop runner.
type WindowConfig struct {
	HostConfig
	// Scale is the window size in screen pixels per LCD pixel.
	Scale int
}

var errAppStopped = errors.New("app stopped")

// RunWindow runs the OS and shows the front panel LCD in a desktop window.
// It blocks until the window closes or run returns.
func RunWindow(ctx context.Context, run AppFunc, cfg WindowConfig) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 4
	}
	h := newHostHAL(cfg.HostConfig)
	fb, ok := h.Display().Framebuffer().(frameSnapshotter)
	if !ok {
		return errors.New("hal: host display cannot be snapshotted")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(func() error { return h.sci.Run(ctx) })
	grp.Go(func() error { return h.t.run(ctx) })
	grp.Go(func() error {
		defer cancel()
		return run(ctx, h)
	})

	g := &hostGame{ctx: ctx, h: h, fb: fb}
	ebiten.SetWindowTitle("MRM front panel (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(fb.Width()*cfg.Scale, fb.Height()*cfg.Scale)
	ebiten.SetTPS(60)

	err := ebiten.RunGame(g)
	cancel()
	if werr := grp.Wait(); werr != nil {
		return werr
	}
	if errors.Is(err, errAppStopped) {
		return nil
	}
	return err
}

type hostGame struct {
	ctx   context.Context
	h     *hostHAL
	fb    frameSnapshotter
	pix   []byte
	frame uint64
	img   *ebiten.Image
}

func (g *hostGame) Update() error {
	if g.ctx.Err() != nil {
		return errAppStopped
	}
	g.h.glass.refresh()
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.fb
	if g.img == nil {
		g.img = ebiten.NewImage(fb.Width(), fb.Height())
		g.pix = make([]byte, fb.Width()*fb.Height()*4)
		g.frame = ^uint64(0)
	}
	if fb.frameCount() != g.frame {
		g.frame = fb.snapshotRGBA(g.pix)
		g.img.ReplacePixels(g.pix)
	}
	screen.DrawImage(g.img, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.fb.Width(), g.fb.Height()
}
