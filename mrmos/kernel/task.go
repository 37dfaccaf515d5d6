package kernel

// MaxTasks is the size of the task arena, idle task included.
const MaxTasks = 32

// PID identifies a task. PIDs are assigned in spawn order starting at 1 and
// are never reused; 0 is never a valid PID.
type PID uint32

// State is the lifecycle state of a live task.
type State uint8

const (
	// StateNew is a task that has been spawned but never given control.
	StateNew State = iota
	// StateRunning is a task that has executed at least once.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

type wakeReason uint8

const (
	wakeRun wakeReason = iota
	wakeKill
)

// Task is a cooperatively scheduled unit of execution.
//
// A task's suspended continuation is its goroutine parked on wake. Only the
// task that holds the processor touches the ring, so the fields below are
// guarded by Kernel.mu only for readers outside the ring.
type Task struct {
	pid   PID
	entry func(arg int)
	arg   int
	stack int
	state State
	idle  bool

	slot int
	next int

	wake chan wakeReason
	done chan struct{}

	// Set when the task leaves the ring other than by returning.
	handoff *Task
	killed  bool
	halting bool
}

// PID returns the task's process id.
func (t *Task) PID() PID { return t.pid }

// Arg returns the argument the task was spawned with.
func (t *Task) Arg() int { return t.arg }

// StackSize returns the stack budget charged for the task.
func (t *Task) StackSize() int { return t.stack }

// TaskInfo is a snapshot of one ring member.
type TaskInfo struct {
	PID       PID
	State     State
	StackSize int
	Idle      bool
	Current   bool
}

func (k *Kernel) freeSlot() int {
	for i := range k.tasks {
		if k.tasks[i] == nil {
			return i
		}
	}
	return -1
}

// link splices t into the ring right after the slot at.
func (k *Kernel) link(t *Task, at int) {
	if at < 0 {
		t.next = t.slot
		return
	}
	prev := k.tasks[at]
	t.next = prev.next
	prev.next = t.slot
}

// unlink removes t from the ring and releases its slot and stack budget.
// It returns the task that followed t, or nil if t was the last member.
func (k *Kernel) unlink(t *Task) *Task {
	var next *Task
	if t.next != t.slot {
		prev := k.prev(t)
		prev.next = t.next
		next = k.tasks[t.next]
		if k.current == t.slot {
			if k.active.Load() {
				k.current = next.slot
			} else {
				k.current = prev.slot
			}
		}
	} else if k.current == t.slot {
		k.current = -1
	}
	k.tasks[t.slot] = nil
	k.stackFree += t.stack
	return next
}

func (k *Kernel) prev(t *Task) *Task {
	p := t
	for {
		n := k.tasks[p.next]
		if n == t {
			return p
		}
		p = n
	}
}

// find searches the ring starting at the current task; at most one
// traversal is made.
func (k *Kernel) find(pid PID) *Task {
	if pid == 0 || k.current < 0 {
		return nil
	}
	start := k.tasks[k.current]
	t := start
	for {
		if t.pid == pid {
			return t
		}
		t = k.tasks[t.next]
		if t == start {
			return nil
		}
	}
}
