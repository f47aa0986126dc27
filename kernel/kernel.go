package kernel

import (
	"errors"
	"fmt"
	"sync/atomic"

	"rtk/arch"
)

const (
	DefaultTasks      = 6
	DefaultPriorities = 6
	DefaultStackWords = 256

	// MaxPriorities is bounded by the width of the ready bitmap.
	MaxPriorities = 32
	// MaxTasks keeps every TaskID below the noTask sentinel.
	MaxTasks = 255
)

var (
	ErrNoFreeSlot  = errors.New("no free task slot")
	ErrBadPriority = errors.New("priority out of range")
	ErrNilEntry    = errors.New("nil task entry")
	ErrBadConfig   = errors.New("invalid kernel config")
	ErrEmptyQueue  = errors.New("queue is empty")
	ErrNotFound    = errors.New("task not in queue")
)

// TaskID is a task slot index. It is stable for the kernel's lifetime.
type TaskID uint8

// IdleTask is the boot context. It is always Ready or Running.
const IdleTask TaskID = 0

const noTask TaskID = 0xFF

// Priority orders tasks: a larger value is more urgent.
type Priority uint8

const IdlePriority Priority = 0

// State is a task's scheduling state.
type State uint8

const (
	Inactive State = iota
	Waiting
	Ready
	Running
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

type tcb struct {
	id    TaskID
	base  uint32
	sp    uint32
	prio  Priority
	state State
	next  TaskID
	queue *taskQueue

	// requeued is set when priority inheritance pulls the task off a wait
	// queue. Its blocked call retries instead of returning.
	requeued bool
}

// Config sizes the kernel. All sizing happens once, in New.
type Config struct {
	Tasks      int
	Priorities int
	StackWords int

	// OnSwitch, if set, is called inside the reschedule trap for every
	// context switch. It runs with interrupts masked.
	OnSwitch func(from, to TaskID)
}

// DefaultConfig returns the six-slot, six-level layout with 1 KiB stacks on
// a 32-bit target.
func DefaultConfig() Config {
	return Config{
		Tasks:      DefaultTasks,
		Priorities: DefaultPriorities,
		StackWords: DefaultStackWords,
	}
}

// TaskInfo is a snapshot of one task slot.
type TaskInfo struct {
	ID           TaskID
	Priority     Priority
	State        State
	StackBase    uint32
	StackPointer uint32
}

// Used reports whether the slot has ever held a task.
func (t TaskInfo) Used() bool {
	return t.ID == IdleTask || t.StackPointer != t.StackBase
}

// Kernel is the task table, the ready queues and the running task.
type Kernel struct {
	port  Port
	cfg   Config
	frame arch.Frame

	stack []uintptr
	tcbs  []tcb
	ready readySet

	running TaskID

	ticks    atomic.Uint64
	switches atomic.Uint64
}

// New creates a kernel on top of port. The calling context becomes the idle
// task in slot 0, running at IdlePriority.
func New(port Port, cfg Config) (*Kernel, error) {
	if port == nil {
		return nil, fmt.Errorf("%w: nil port", ErrBadConfig)
	}
	frame := port.Frame()
	if !frame.Valid() {
		return nil, fmt.Errorf("%w: invalid register frame", ErrBadConfig)
	}
	if cfg.Tasks < 2 || cfg.Tasks > MaxTasks {
		return nil, fmt.Errorf("%w: tasks %d not in [2, %d]", ErrBadConfig, cfg.Tasks, MaxTasks)
	}
	if cfg.Priorities < 1 || cfg.Priorities > MaxPriorities {
		return nil, fmt.Errorf("%w: priorities %d not in [1, %d]", ErrBadConfig, cfg.Priorities, MaxPriorities)
	}
	if cfg.StackWords < 2*frame.Words {
		return nil, fmt.Errorf("%w: stack of %d words cannot hold two %d-word frames", ErrBadConfig, cfg.StackWords, frame.Words)
	}

	words := cfg.Tasks * cfg.StackWords
	var stack []uintptr
	if sp, ok := port.(StackProvider); ok {
		stack = sp.StackRegion(words)
		if len(stack) < words {
			return nil, fmt.Errorf("%w: port has %d stack words, need %d", ErrBadConfig, len(stack), words)
		}
		stack = stack[:words:words]
	} else {
		stack = make([]uintptr, words)
	}

	k := &Kernel{
		port:  port,
		cfg:   cfg,
		frame: frame,
		stack: stack,
		tcbs:  make([]tcb, cfg.Tasks),
	}
	k.ready.init(cfg.Priorities)
	k.resetSlots()
	port.Attach(k.stack, k.tcbs[IdleTask].base, k.Reschedule)
	return k, nil
}

func (k *Kernel) resetSlots() {
	for i := range k.tcbs {
		base := uint32((i + 1) * k.cfg.StackWords)
		k.tcbs[i] = tcb{
			id:    TaskID(i),
			base:  base,
			sp:    base,
			state: Inactive,
			next:  noTask,
		}
	}
	idle := &k.tcbs[IdleTask]
	idle.prio = IdlePriority
	idle.state = Running
	k.running = IdleTask
}

// Reset returns the kernel to its just-booted state with every slot free and
// the caller running as the idle task. Contexts parked on the port are
// abandoned and the port is attached afresh.
func (k *Kernel) Reset() {
	defer k.enter().release()
	for i := range k.stack {
		k.stack[i] = 0
	}
	k.ready.init(k.cfg.Priorities)
	k.resetSlots()
	k.port.Attach(k.stack, k.tcbs[IdleTask].base, k.Reschedule)
	k.ticks.Store(0)
	k.switches.Store(0)
}

// CreateTask places entry in the first free slot at the given priority and
// makes it Ready. arg is delivered in the first-parameter register.
func (k *Kernel) CreateTask(entry arch.Entry, arg uintptr, prio Priority) (TaskID, error) {
	if entry == nil {
		return 0, ErrNilEntry
	}
	if int(prio) >= k.cfg.Priorities {
		return 0, fmt.Errorf("%w: %d >= %d", ErrBadPriority, prio, k.cfg.Priorities)
	}

	defer k.enter().release()
	for i := 1; i < len(k.tcbs); i++ {
		t := &k.tcbs[i]
		if t.sp != t.base {
			continue
		}
		t.sp = k.buildFrame(t.base, k.port.EntryAddress(k.guardEntry(entry)), arg)
		t.prio = prio
		t.state = Ready
		k.ready.enqueue(k.tcbs, t)
		return t.id, nil
	}
	return 0, ErrNoFreeSlot
}

// Current returns the running task.
func (k *Kernel) Current() TaskID {
	defer k.enter().release()
	return k.running
}

// Task returns a snapshot of slot id.
func (k *Kernel) Task(id TaskID) (TaskInfo, bool) {
	if int(id) >= len(k.tcbs) {
		return TaskInfo{}, false
	}
	defer k.enter().release()
	return k.tcbs[id].info(), true
}

// Tasks appends a snapshot of every slot to dst.
func (k *Kernel) Tasks(dst []TaskInfo) []TaskInfo {
	defer k.enter().release()
	for i := range k.tcbs {
		dst = append(dst, k.tcbs[i].info())
	}
	return dst
}

// Ticks returns the number of timer ticks since boot (1ms per tick).
func (k *Kernel) Ticks() uint64 { return k.ticks.Load() }

// Switches returns the number of context switches performed.
func (k *Kernel) Switches() uint64 { return k.switches.Load() }

// Config returns the configuration the kernel was created with.
func (k *Kernel) Config() Config { return k.cfg }

func (t *tcb) info() TaskInfo {
	return TaskInfo{
		ID:           t.id,
		Priority:     t.prio,
		State:        t.state,
		StackBase:    t.base,
		StackPointer: t.sp,
	}
}

// guardEntry turns a returning task body into a fatal fault instead of a
// jump through a zeroed link register.
func (k *Kernel) guardEntry(entry arch.Entry) arch.Entry {
	return func(arg uintptr) {
		entry(arg)
		defer k.enter().release()
		k.fault(FaultTaskReturned, "")
	}
}

func (k *Kernel) current() *tcb {
	return &k.tcbs[k.running]
}
