package kernel

import (
	"errors"
	"testing"

	"rtk/arch"
)

func TestCreateTaskBuildsInitialFrame(t *testing.T) {
	k, p := newTestKernel(t, DefaultConfig())

	const arg uintptr = 0xCAFE
	var got uintptr
	id, err := k.CreateTask(func(a uintptr) { got = a }, arg, 3)
	if err != nil {
		t.Fatalf("CreateTask() err = %v", err)
	}
	if id != 1 {
		t.Fatalf("CreateTask() id = %d, want 1", id)
	}

	info, _ := k.Task(id)
	f := arch.CortexM3
	if want := info.StackBase - uint32(f.Words); info.StackPointer != want {
		t.Fatalf("sp = %d, want %d", info.StackPointer, want)
	}
	if info.State != Ready || info.Priority != 3 {
		t.Fatalf("task = %+v, want Ready at priority 3", info)
	}

	frame := p.stack[info.StackPointer:info.StackBase]
	if frame[f.PSR] != 0x01000000 {
		t.Fatalf("PSR = %#x, want thumb bit only", frame[f.PSR])
	}
	if frame[f.Arg] != arg {
		t.Fatalf("R0 = %#x, want %#x", frame[f.Arg], arg)
	}
	for i, w := range frame {
		if i == f.PSR || i == f.PC || i == f.Arg {
			continue
		}
		if w != 0 {
			t.Fatalf("frame word %d = %#x, want 0", i, w)
		}
	}

	entry := p.entry(frame[f.PC])
	if entry == nil {
		t.Fatalf("PC %#x does not name a registered entry", frame[f.PC])
	}
	func() {
		defer func() { _ = recover() }()
		SetFaultHandler(func(FaultInfo) {})
		defer SetFaultHandler(nil)
		defer halted.Store(false)
		entry(frame[f.Arg])
	}()
	if got != arg {
		t.Fatalf("entry received %#x, want %#x", got, arg)
	}
}

func TestCreateTaskUsesFirstFreeSlot(t *testing.T) {
	k, _ := newTestKernel(t, DefaultConfig())

	for want := TaskID(1); want < DefaultTasks; want++ {
		if got := mustCreate(t, k, 1); got != want {
			t.Fatalf("CreateTask() id = %d, want %d", got, want)
		}
	}
}

func TestCreateTaskNoFreeSlotLeavesStateAlone(t *testing.T) {
	k, p := newTestKernel(t, DefaultConfig())
	for i := 1; i < DefaultTasks; i++ {
		mustCreate(t, k, Priority(i%DefaultPriorities))
	}

	before := k.Tasks(nil)
	stack := append([]uintptr(nil), p.stack...)
	bits := k.ready.bits

	if _, err := k.CreateTask(nopEntry, 0, 1); !errors.Is(err, ErrNoFreeSlot) {
		t.Fatalf("CreateTask() err = %v, want ErrNoFreeSlot", err)
	}

	after := k.Tasks(nil)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("task %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	for i := range stack {
		if stack[i] != p.stack[i] {
			t.Fatalf("stack word %d changed", i)
		}
	}
	if k.ready.bits != bits {
		t.Fatalf("bitmap changed: %#x -> %#x", bits, k.ready.bits)
	}
	if p.masked != 0 {
		t.Fatalf("mask depth = %d after failed create, want 0", p.masked)
	}
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	k, _ := newTestKernel(t, DefaultConfig())

	if _, err := k.CreateTask(nil, 0, 1); !errors.Is(err, ErrNilEntry) {
		t.Fatalf("CreateTask(nil) err = %v, want ErrNilEntry", err)
	}
	if _, err := k.CreateTask(nopEntry, 0, DefaultPriorities); !errors.Is(err, ErrBadPriority) {
		t.Fatalf("CreateTask(prio %d) err = %v, want ErrBadPriority", DefaultPriorities, err)
	}
	if got := mustCreate(t, k, 1); got != 1 {
		t.Fatalf("slot after rejected creates = %d, want 1", got)
	}
}

func TestTaskReturningIsFatal(t *testing.T) {
	k, p := newTestKernel(t, DefaultConfig())
	id := mustCreate(t, k, 1)
	info, _ := k.Task(id)
	entry := p.entry(p.stack[info.StackPointer+uint32(arch.CortexM3.PC)])

	fi, ok := catchFault(t, func() { entry(0) })
	if !ok || fi.Kind != FaultTaskReturned {
		t.Fatalf("fault = %+v (ok=%v), want FaultTaskReturned", fi, ok)
	}
	if p.masked != 0 {
		t.Fatalf("mask depth = %d after fault, want 0", p.masked)
	}
}

func TestResetFreesSlots(t *testing.T) {
	k, p := newTestKernel(t, DefaultConfig())
	mustCreate(t, k, 2)
	mustCreate(t, k, 2)
	k.Tick()
	trap(t, k, p)

	k.Reset()

	if p.live != DefaultStackWords {
		t.Fatalf("boot sp after Reset = %d, want %d", p.live, DefaultStackWords)
	}
	expectState(t, k, IdleTask, Running)

	if k.ready.bits != 0 {
		t.Fatalf("bitmap after Reset = %#x, want 0", k.ready.bits)
	}
	if k.Ticks() != 0 {
		t.Fatalf("Ticks() after Reset = %d, want 0", k.Ticks())
	}
	for _, info := range k.Tasks(nil)[1:] {
		if info.Used() || info.State != Inactive {
			t.Fatalf("slot %d after Reset = %+v, want free", info.ID, info)
		}
	}
	if got := mustCreate(t, k, 1); got != 1 {
		t.Fatalf("CreateTask() after Reset id = %d, want 1", got)
	}
}

type regionPort struct {
	fakePort
	region []uintptr
}

func (p *regionPort) StackRegion(words int) []uintptr {
	if words > len(p.region) {
		return nil
	}
	return p.region
}

func TestNewUsesPortStackRegion(t *testing.T) {
	cfg := DefaultConfig()
	words := cfg.Tasks * cfg.StackWords
	p := &regionPort{region: make([]uintptr, words+8)}

	if _, err := New(p, cfg); err != nil {
		t.Fatalf("New() err = %v", err)
	}
	if len(p.stack) != words {
		t.Fatalf("attached stack len = %d, want %d", len(p.stack), words)
	}
	if &p.stack[0] != &p.region[0] {
		t.Fatal("kernel did not attach the port's stack region")
	}

	small := &regionPort{region: make([]uintptr, words-1)}
	if _, err := New(small, cfg); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("New() with a short region err = %v, want ErrBadConfig", err)
	}
}
