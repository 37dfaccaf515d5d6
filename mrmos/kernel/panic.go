package kernel

// PanicInfo contains details about a recovered task panic.
type PanicInfo struct {
	PID   PID
	Value any
	Stack []byte
}

func (k *Kernel) reportPanic(t *Task, v any) {
	if k.cfg.OnPanic == nil {
		return
	}
	k.cfg.OnPanic(PanicInfo{
		PID:   t.pid,
		Value: v,
		Stack: captureStack(),
	})
}
