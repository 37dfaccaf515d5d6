//go:build !tinygo

package hal

import (
	"bytes"
	"strings"
	"testing"
)

func TestGlassRendersText(t *testing.T) {
	lcd := NewHD44780()
	lcd.WriteCommand(0x38)
	lcd.WriteCommand(0x0c)
	writeString(lcd, "HELLO")

	g := newLCDGlass(lcd)
	lines, changed := g.refresh()
	if !changed {
		t.Fatal("refresh() changed = false on first draw")
	}
	if got := strings.TrimRight(lines[0], " "); got != "HELLO" {
		t.Fatalf("refresh() line 1 = %q, want %q", got, "HELLO")
	}
	if g.fb.frameCount() != 1 {
		t.Fatalf("frameCount() = %d, want 1", g.fb.frameCount())
	}

	ink := rgb565(glassInk.R, glassInk.G, glassInk.B)
	inked := 0
	buf := g.fb.Buffer()
	for i := 0; i+1 < len(buf); i += 2 {
		if uint16(buf[i])|uint16(buf[i+1])<<8 == ink {
			inked++
		}
	}
	if inked == 0 {
		t.Fatal("no ink pixels on the glass")
	}

	if _, changed := g.refresh(); changed {
		t.Fatal("refresh() changed = true without controller writes")
	}
}

func TestPrintable(t *testing.T) {
	if got := string(printable("a\x01b\xffc")); got != "a b c" {
		t.Fatalf("printable() = %q, want %q", got, "a b c")
	}
}

func TestHostDisplayServesGlass(t *testing.T) {
	h := newHostHAL(HostConfig{Line: &bytes.Buffer{}})
	fb, ok := h.Display().Framebuffer().(frameSnapshotter)
	if !ok {
		t.Fatalf("Display().Framebuffer() = %T, want a snapshottable framebuffer", h.Display().Framebuffer())
	}
	if fb.Width() != 144 || fb.Height() != 18 || fb.Format() != PixelFormatRGB565 {
		t.Fatalf("framebuffer = %dx%d format %d, want 144x18 RGB565", fb.Width(), fb.Height(), fb.Format())
	}

	h.lcd.WriteCommand(0x38)
	h.lcd.WriteCommand(0x0c)
	writeString(h.lcd, "A")
	h.glass.refresh()
	if fb.frameCount() != h.glass.fb.frameCount() || fb.frameCount() == 0 {
		t.Fatalf("frameCount() = %d, want the glass frame %d", fb.frameCount(), h.glass.fb.frameCount())
	}
	pix := make([]byte, fb.Width()*fb.Height()*4)
	fb.snapshotRGBA(pix)
	r, g, b := rgb888From565(rgb565(glassInk.R, glassInk.G, glassInk.B))
	found := false
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i] == r && pix[i+1] == g && pix[i+2] == b {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("snapshot holds no ink pixels after drawing through the display")
	}
}
