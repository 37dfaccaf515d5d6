package kernel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	// DefaultStackPool is the stack budget shared by all tasks.
	DefaultStackPool = 32 * 1024
	// DefaultStackSize is a reasonable per-task stack request.
	DefaultStackSize = 1024

	idleStackSize = 256
)

var (
	ErrNotFound       = errors.New("no such task")
	ErrTaskLimit      = errors.New("task table full")
	ErrNoStack        = errors.New("out of stack space")
	ErrInvalidTask    = errors.New("invalid task")
	ErrIdleTask       = errors.New("idle task cannot be terminated")
	ErrNotRunning     = errors.New("scheduler not running")
	ErrAlreadyRunning = errors.New("scheduler already started")
)

// Clock is the time source used by Sleep and SleepUntil.
type Clock interface {
	Now() uint64
}

// Config tunes a Kernel. The zero value is usable.
type Config struct {
	// StackPool is the total stack budget; DefaultStackPool if zero.
	StackPool int

	// OnPanic is called on the panicking task's goroutine after a task
	// panic has been recovered and before the task is removed from the
	// ring. It must not panic or call back into the kernel.
	OnPanic func(PanicInfo)

	// Idle runs once per idle-task turn, before the idle task yields.
	// Host builds use it to stand in for a low-power stop.
	Idle func()
}

// Kernel is a cooperative round-robin scheduler.
//
// Every task runs on its own goroutine, but only the task holding the
// processor executes; it passes the processor on by waking the next ring
// member and parking itself. Yield, Spawn, Terminate and the sleep calls
// must be made from the running task, or from the bootstrap goroutine
// before Run.
type Kernel struct {
	clock Clock
	cfg   Config

	mu        sync.Mutex
	tasks     [MaxTasks]*Task
	current   int
	nextPID   PID
	stackFree int

	started  atomic.Bool
	active   atomic.Bool
	stopping atomic.Bool
	halted   chan struct{}
	err      error

	idleCount atomic.Uint64
}

// New creates a kernel. Tasks spawned before Run are scheduled in spawn
// order.
func New(clock Clock, cfg Config) *Kernel {
	if cfg.StackPool <= 0 {
		cfg.StackPool = DefaultStackPool
	}
	return &Kernel{
		clock:     clock,
		cfg:       cfg,
		current:   -1,
		stackFree: cfg.StackPool,
		halted:    make(chan struct{}),
	}
}

// Spawn creates a task that will call entry(arg) when the scheduler first
// reaches it. The task is linked right after the calling task.
func (k *Kernel) Spawn(entry func(arg int), arg, stackSize int) (PID, error) {
	if entry == nil || stackSize <= 0 {
		return 0, ErrInvalidTask
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if stackSize > k.stackFree {
		return 0, fmt.Errorf("spawn %d bytes (%d free): %w", stackSize, k.stackFree, ErrNoStack)
	}
	slot := k.freeSlot()
	if slot < 0 {
		return 0, ErrTaskLimit
	}

	k.nextPID++
	t := &Task{
		pid:   k.nextPID,
		entry: entry,
		arg:   arg,
		stack: stackSize,
		slot:  slot,
		wake:  make(chan wakeReason),
		done:  make(chan struct{}),
	}
	k.tasks[slot] = t
	k.stackFree -= stackSize
	k.link(t, k.current)
	if k.current < 0 || !k.active.Load() {
		k.current = slot
	}
	return t.pid, nil
}

// Start runs the scheduler forever.
func (k *Kernel) Start() {
	_ = k.Run(context.Background())
}

// Run spawns the idle task and hands the processor to the first spawned
// task. It returns once ctx is done and the ring has been torn down; the
// next Yield made by any task after cancellation performs the teardown.
func (k *Kernel) Run(ctx context.Context) error {
	if !k.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if _, err := k.Spawn(k.idleLoop, 0, idleStackSize); err != nil {
		return fmt.Errorf("spawn idle task: %w", err)
	}

	k.mu.Lock()
	idle := k.tasks[k.current]
	idle.idle = true
	first := k.tasks[idle.next]
	k.current = first.slot
	k.active.Store(true)
	k.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { k.stopping.Store(true) })
	defer stop()

	k.dispatch(first)
	<-k.halted
	k.active.Store(false)

	if k.err != nil {
		return k.err
	}
	return ctx.Err()
}

// Running reports whether the scheduler is dispatching tasks.
func (k *Kernel) Running() bool {
	return k.active.Load()
}

// Yield hands the processor to the next task in the ring. It returns when
// the ring comes back around to the caller. Before Run it does nothing.
func (k *Kernel) Yield() {
	if !k.active.Load() {
		return
	}

	k.mu.Lock()
	cur := k.tasks[k.current]
	if k.stopping.Load() {
		k.halt(cur)
		runtime.Goexit()
	}
	next := k.tasks[cur.next]
	k.current = next.slot
	k.mu.Unlock()

	if next == cur {
		return
	}
	k.dispatch(next)
	k.park(cur)
}

// Terminate removes the task with the given PID from the ring. If that is
// the calling task, the processor passes to the next task and Terminate
// does not return.
func (k *Kernel) Terminate(pid PID) error {
	k.mu.Lock()
	t := k.find(pid)
	if t == nil {
		k.mu.Unlock()
		return ErrNotFound
	}
	if t.idle {
		k.mu.Unlock()
		return ErrIdleTask
	}

	if k.active.Load() && t.slot == k.current {
		t.handoff = k.unlink(t)
		k.mu.Unlock()
		runtime.Goexit()
	}

	k.unlink(t)
	started := t.state == StateRunning
	if started {
		t.killed = true
	}
	k.mu.Unlock()

	if started {
		t.wake <- wakeKill
		<-t.done
	}
	return nil
}

// TerminateSelf removes the calling task from the ring and passes the
// processor on. It returns only with ErrNotRunning when called outside a
// running task.
func (k *Kernel) TerminateSelf() error {
	if !k.active.Load() {
		return ErrNotRunning
	}
	return k.Terminate(k.Current())
}

// FindByPID returns the live task with the given PID.
func (k *Kernel) FindByPID(pid PID) (*Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t := k.find(pid); t != nil {
		return t, nil
	}
	return nil, ErrNotFound
}

// Current returns the PID of the running task, or 0 before Run.
func (k *Kernel) Current() PID {
	if !k.active.Load() {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current < 0 {
		return 0
	}
	return k.tasks[k.current].pid
}

// IdleCount returns the number of idle-task turns so far.
func (k *Kernel) IdleCount() uint64 {
	return k.idleCount.Load()
}

// Tasks returns the ring in scheduling order, starting at the current task.
func (k *Kernel) Tasks() []TaskInfo {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current < 0 {
		return nil
	}

	var out []TaskInfo
	start := k.tasks[k.current]
	if !k.active.Load() {
		// Before Run the cursor sits on the most recent spawn.
		start = k.tasks[start.next]
	}
	t := start
	for {
		out = append(out, TaskInfo{
			PID:       t.pid,
			State:     t.state,
			StackSize: t.stack,
			Idle:      t.idle,
			Current:   k.active.Load() && t.slot == k.current,
		})
		t = k.tasks[t.next]
		if t == start {
			return out
		}
	}
}

func (k *Kernel) idleLoop(int) {
	for {
		k.idleCount.Add(1)
		if k.cfg.Idle != nil {
			k.cfg.Idle()
		}
		k.Yield()
	}
}

// dispatch gives the processor to t.
func (k *Kernel) dispatch(t *Task) {
	k.mu.Lock()
	fresh := t.state == StateNew
	t.state = StateRunning
	k.mu.Unlock()

	if fresh {
		go k.trampoline(t)
		return
	}
	t.wake <- wakeRun
}

func (k *Kernel) park(t *Task) {
	if <-t.wake == wakeKill {
		runtime.Goexit()
	}
}

func (k *Kernel) trampoline(t *Task) {
	defer k.exit(t)
	defer func() {
		if r := recover(); r != nil {
			k.reportPanic(t, r)
		}
	}()
	t.entry(t.arg)
}

// exit runs last on every task goroutine.
func (k *Kernel) exit(t *Task) {
	switch {
	case t.killed:
		close(t.done)
		return
	case t.halting:
		close(t.done)
		close(k.halted)
		return
	}

	if t.handoff == nil {
		// Returned or panicked: leave the ring as if by TerminateSelf.
		k.mu.Lock()
		if t.idle {
			k.err = fmt.Errorf("idle task exited: %w", ErrNotRunning)
			k.halt(t)
			close(t.done)
			close(k.halted)
			return
		}
		t.handoff = k.unlink(t)
		k.mu.Unlock()
	}
	close(t.done)
	k.dispatch(t.handoff)
}

// halt tears the ring down from the running task t, which is left marked
// as halting and unlinked. k.mu must be held; it is released here.
func (k *Kernel) halt(t *Task) {
	var victims []*Task
	for n := k.tasks[t.next]; n != t; n = k.tasks[n.next] {
		if n.state == StateRunning {
			n.killed = true
			victims = append(victims, n)
		}
	}
	for n := k.tasks[t.next]; n != t; n = k.tasks[t.next] {
		k.unlink(n)
	}
	k.unlink(t)
	t.halting = true
	k.mu.Unlock()

	for _, v := range victims {
		v.wake <- wakeKill
		<-v.done
	}
}
