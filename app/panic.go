package app

import (
	"fmt"
	"strings"

	"github.com/dprg/libdprg/mrmos/kernel"
	"github.com/dprg/libdprg/mrmos/services/lcd"
)

// reportPanic logs a recovered task panic with its stack and puts a short
// notice on the LCD. It runs on the dying task, so it only uses
// non-blocking sends.
func (s *System) reportPanic(info kernel.PanicInfo) {
	if l := s.log; l != nil {
		l.WriteLineString(fmt.Sprintf("libdprg panic: task=%d panic=%v", info.PID, info.Value))
		if len(info.Stack) == 0 {
			l.WriteLineString("stack: unavailable")
		}
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			l.WriteLineString(line)
		}
	}

	if s.LCD == nil {
		return
	}
	msg := fmt.Sprintf("\nPANIC task %d\t%v", info.PID, info.Value)
	for i := 0; i < len(msg) && i < lcd.BufferSize-1; i++ {
		if s.LCD.TrySend(msg[i]) != nil {
			return
		}
	}
}
