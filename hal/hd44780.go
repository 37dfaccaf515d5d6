package hal

import (
	"strings"
	"sync"
	"time"
)

// Geometry of the MRM front panel display.
const (
	LCDColumns = 24
	LCDRows    = 2
)

// Instruction execution times at the nominal 270 kHz oscillator.
const (
	hd44780ExecTime  = 37 * time.Microsecond
	hd44780ClearTime = 1520 * time.Microsecond
)

// HD44780 is a software model of an HD44780 controller: DDRAM, address
// counter, entry mode, display on/off and the busy flag with datasheet
// timing. CGRAM and display shift are accepted and ignored.
type HD44780 struct {
	mu  sync.Mutex
	now func() time.Time

	busyUntil time.Time
	ddram     [0x80]byte
	ac        byte
	inc       bool
	on        bool
	twoLine   bool
	rev       uint64
}

// NewHD44780 returns a powered-up controller: display off, DDRAM blank.
func NewHD44780() *HD44780 {
	return newHD44780(time.Now)
}

func newHD44780(now func() time.Time) *HD44780 {
	d := &HD44780{now: now, inc: true}
	d.clear()
	return d
}

func (d *HD44780) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now().Before(d.busyUntil)
}

func (d *HD44780) WriteCommand(c byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exec := hd44780ExecTime
	switch {
	case c&0x80 != 0:
		d.ac = c & 0x7f
	case c&0x40 != 0:
		// CGRAM address
	case c&0x20 != 0:
		d.twoLine = c&0x08 != 0
	case c&0x10 != 0:
		// cursor or display shift
	case c&0x08 != 0:
		d.on = c&0x04 != 0
	case c&0x04 != 0:
		d.inc = c&0x02 != 0
	case c&0x02 != 0:
		d.ac = 0
		exec = hd44780ClearTime
	case c&0x01 != 0:
		d.clear()
		d.ac = 0
		d.inc = true
		exec = hd44780ClearTime
	}
	d.busyUntil = d.now().Add(exec)
	d.rev++
}

func (d *HD44780) WriteData(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ddram[d.ac] = b
	if d.inc {
		d.ac = (d.ac + 1) & 0x7f
	} else {
		d.ac = (d.ac - 1) & 0x7f
	}
	d.busyUntil = d.now().Add(hd44780ExecTime)
	d.rev++
}

// Lines returns what the glass shows. A display that is off, or still in
// one-line mode, shows nothing on the second line.
func (d *HD44780) Lines() [LCDRows]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out [LCDRows]string
	blank := strings.Repeat(" ", LCDColumns)
	for i := range out {
		out[i] = blank
	}
	if !d.on {
		return out
	}
	out[0] = string(d.ddram[0x00 : 0x00+LCDColumns])
	if d.twoLine {
		out[1] = string(d.ddram[0x40 : 0x40+LCDColumns])
	}
	return out
}

// Revision changes whenever the controller accepts a command or data.
func (d *HD44780) Revision() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rev
}

func (d *HD44780) clear() {
	for i := range d.ddram {
		d.ddram[i] = ' '
	}
}
