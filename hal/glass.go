//go:build !tinygo

package hal

import (
	"image/color"
	"strings"
	"sync"

	"github.com/dprg/libdprg/internal/hd44780font"

	"tinygo.org/x/tinyterm"
)

var (
	glassBackground = color.RGBA{R: 0x5a, G: 0x8c, B: 0x2a, A: 0xff}
	glassInk        = color.RGBA{R: 0x10, G: 0x20, B: 0x08, A: 0xff}
)

// lcdGlass renders the two lines of an HD44780 into a framebuffer, one
// font cell per character position.
type lcdGlass struct {
	mu    sync.Mutex
	lcd   *HD44780
	fb    *hostFramebuffer
	term  *tinyterm.Terminal
	rev   uint64
	lines [LCDRows]string
}

func newLCDGlass(lcd *HD44780) *lcdGlass {
	fb := newHostFramebuffer(LCDColumns*hd44780font.Width, LCDRows*hd44780font.Height)
	g := &lcdGlass{
		lcd:  lcd,
		fb:   fb,
		term: tinyterm.NewTerminal(&fbDisplay{fb: fb, ink: glassColor}),
		rev:  ^uint64(0),
	}
	return g
}

// refresh redraws the glass if the controller changed since the last call
// and reports whether the visible text changed.
func (g *lcdGlass) refresh() ([LCDRows]string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rev := g.lcd.Revision()
	if rev == g.rev {
		return g.lines, false
	}
	g.rev = rev

	lines := g.lcd.Lines()
	if lines == g.lines {
		return lines, false
	}
	g.lines = lines

	g.fb.mu.Lock()
	g.fb.ClearRGB(glassBackground.R, glassBackground.G, glassBackground.B)
	g.term.Configure(&tinyterm.Config{
		Font:       hd44780font.Font,
		FontHeight: hd44780font.Height,
		FontOffset: hd44780font.Baseline,
	})
	for i, line := range lines {
		if i > 0 {
			_, _ = g.term.Write([]byte{'\n'})
		}
		_, _ = g.term.Write(printable(strings.TrimRight(line, " ")))
	}
	g.fb.mu.Unlock()
	_ = g.fb.Present()
	return lines, true
}

// glassColor turns the terminal's light-on-dark drawing into dark
// segments on a backlit panel.
func glassColor(c color.RGBA) color.RGBA {
	if int(c.R)+int(c.G)+int(c.B) < 3*0x40 {
		return glassBackground
	}
	return glassInk
}

// printable maps bytes the glass font has no glyph for to spaces.
func printable(s string) []byte {
	out := []byte(s)
	for i, b := range out {
		if b < 0x20 || b > 0x7e {
			out[i] = ' '
		}
	}
	return out
}

// hostFramebuffer is an RGB565 framebuffer in host memory. Present counts
// frames so a window only uploads pixels that changed. Drawing happens
// with mu held.
type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	buf    []byte
	frame  uint64
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	return &hostFramebuffer{
		width:  width,
		height: height,
		buf:    make([]byte, width*2*height),
	}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.width * 2 }
func (f *hostFramebuffer) Buffer() []byte      { return f.buf }

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i] = byte(pixel)
		f.buf[i+1] = byte(pixel >> 8)
	}
}

func (f *hostFramebuffer) Present() error {
	f.mu.Lock()
	f.frame++
	f.mu.Unlock()
	return nil
}

// frameSnapshotter is a Framebuffer a window can copy out of safely while
// the glass keeps drawing into it.
type frameSnapshotter interface {
	Framebuffer
	snapshotRGBA(dst []byte) uint64
	frameCount() uint64
}

var _ frameSnapshotter = (*hostFramebuffer)(nil)

// snapshotRGBA converts the framebuffer into dst (4 bytes per pixel) and
// returns the frame number it belongs to.
func (f *hostFramebuffer) snapshotRGBA(dst []byte) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i+1 < len(f.buf) && i*2+3 < len(dst); i += 2 {
		r, g, b := rgb888From565(uint16(f.buf[i]) | uint16(f.buf[i+1])<<8)
		j := i * 2
		dst[j+0] = r
		dst[j+1] = g
		dst[j+2] = b
		dst[j+3] = 0xff
	}
	return f.frame
}

func (f *hostFramebuffer) frameCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}
