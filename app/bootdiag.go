//go:build bootdebug

package app

import (
	"sync"
	"time"

	"github.com/dprg/libdprg/hal"
)

var (
	bootDiagMu   sync.Mutex
	bootDiagStep string
	bootDiagOnce sync.Once
)

func bootDiagSetStep(msg string) {
	bootDiagMu.Lock()
	bootDiagStep = msg
	bootDiagMu.Unlock()
}

// bootDiagStart repeats the current bring-up step on the log until the
// scheduler starts, so a hang during boot shows where it stopped.
func bootDiagStart(l hal.Logger) {
	if l == nil {
		return
	}
	bootDiagOnce.Do(func() {
		go func() {
			for {
				bootDiagMu.Lock()
				step := bootDiagStep
				bootDiagMu.Unlock()

				if step == "" {
					step = "<empty>"
				}
				l.WriteLineString("bootdiag: " + step)
				if step == "run" {
					return
				}
				time.Sleep(250 * time.Millisecond)
			}
		}()
	})
}
