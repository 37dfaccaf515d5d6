// Package blink is the status LED and its heartbeat task.
package blink

import "github.com/dprg/libdprg/hal"

// DefaultPeriod is the heartbeat half-period in ticks.
const DefaultPeriod = 500

// Switch remembers the LED state so it can be toggled. Only tasks use it,
// and only one task runs at a time.
type Switch struct {
	pin hal.LED
	on  bool
}

func NewSwitch(pin hal.LED) *Switch {
	s := &Switch{pin: pin}
	s.Off()
	return s
}

func (s *Switch) On() {
	s.on = true
	s.pin.High()
}

func (s *Switch) Off() {
	s.on = false
	s.pin.Low()
}

func (s *Switch) Toggle() {
	if s.on {
		s.Off()
		return
	}
	s.On()
}

func (s *Switch) IsOn() bool { return s.on }

// Sleeper is the kernel call the heartbeat needs.
type Sleeper interface {
	SleepUntil(mark, delay uint64) uint64
}

// Heartbeat toggles the LED every period ticks. A positive count stops it
// after that many toggles; zero runs forever.
type Heartbeat struct {
	LED    *Switch
	Sleep  Sleeper
	Period uint64
	Count  int
}

// Run is the task entry. The argument is the starting clock mark.
func (h *Heartbeat) Run(arg int) {
	period := h.Period
	if period == 0 {
		period = DefaultPeriod
	}
	mark := uint64(arg)
	for n := 0; h.Count == 0 || n < h.Count; n++ {
		mark = h.Sleep.SleepUntil(mark, period)
		h.LED.Toggle()
	}
}
