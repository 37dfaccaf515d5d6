//go:build tinygo && baremetal

package hal

import (
	"context"
	"machine"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	sci    *LineSCI
	lcd    *busLCD
	t      *tinyGoTime
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// SCI: UART0 on GP0 (TX) / GP1 (RX), 9600 8N1 as on the MRM.
// LCD: D0-D7 on GP2-GP9, E on GP10, RS on GP11, RW on GP12.
// Log: USB serial.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 9600,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	bus := newPinBus(
		[8]machine.Pin{machine.GP2, machine.GP3, machine.GP4, machine.GP5, machine.GP6, machine.GP7, machine.GP8, machine.GP9},
		machine.GP10, machine.GP11, machine.GP12,
	)

	logger := &uartLogger{w: machine.Serial}
	sci := NewLineSCI(uart, logger)
	go sci.Run(context.Background())

	return &tinyGoHAL{
		logger: logger,
		led:    &pinLED{pin: ledPin},
		sci:    sci,
		lcd:    &busLCD{bus: bus},
		t:      newTinyGoTime(),
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) SCI() SCI         { return h.sci }
func (h *tinyGoHAL) LCD() CharLCD     { return h.lcd }
func (h *tinyGoHAL) Display() Display { return nullDisplay{} }
func (h *tinyGoHAL) Time() Time       { return h.t }
