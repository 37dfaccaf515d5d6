package hal

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts a Framebuffer to the drivers.Displayer family so that
// tinyfont and tinyterm can draw into it.
type fbDisplay struct {
	fb Framebuffer
	// ink maps the drawing color, if set.
	ink func(color.RGBA) color.RGBA
}

var _ drivers.Displayer = (*fbDisplay)(nil)

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	buf := d.fb.Buffer()
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	off := iy*d.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	pixel := d.rgb565(c)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error {
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	buf := d.fb.Buffer()
	w, h := d.fb.Width(), d.fb.Height()

	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)

	pixel := d.rgb565(c)
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			off := py*stride + px*2
			if off+1 >= len(buf) {
				continue
			}
			buf[off] = byte(pixel)
			buf[off+1] = byte(pixel >> 8)
		}
	}
	return nil
}

func (d *fbDisplay) rgb565(c color.RGBA) uint16 {
	if d.ink != nil {
		c = d.ink(c)
	}
	return rgb565(c.R, c.G, c.B)
}

// No hardware scroll or rotation.
func (d *fbDisplay) SetScroll(line int16)                            {}
func (d *fbDisplay) SetScrollArea(topFixedArea, bottomFixedArea int16) {}
func (d *fbDisplay) StopScroll()                                     {}
func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error       { return nil }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
