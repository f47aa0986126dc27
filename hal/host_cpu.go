//go:build !tinygo

package hal

import (
	"fmt"
	"sync/atomic"

	"rtk/arch"
)

// hostCPU runs each kernel context on its own goroutine and lets exactly one
// of them run at a time. The mask, the pending trap and queued interrupts
// are only acted on by the running context, so preemption happens at the
// next kernel call (or WaitForInterrupt) rather than at an arbitrary
// instruction.
type hostCPU struct {
	frame arch.Frame
	stack []uintptr
	trap  func()

	mask    uintptr
	pending atomic.Bool
	irqs    chan func()
	kick    chan struct{}
	dropped atomic.Uint64

	cur   *hostThread
	saved map[uint32]*hostThread

	entries map[uintptr]arch.Entry
	nextPC  uintptr

	halted atomic.Value
}

type hostThread struct {
	wake       chan struct{}
	sp         uint32
	delivering bool
}

const (
	hostIRQDepth  = 1024
	hostEntryBase = 0x1000
)

func newHostCPU() *hostCPU {
	return &hostCPU{
		frame:   arch.CortexM3,
		irqs:    make(chan func(), hostIRQDepth),
		kick:    make(chan struct{}, 1),
		entries: make(map[uintptr]arch.Entry),
		nextPC:  hostEntryBase,
	}
}

func newHostThread() *hostThread {
	return &hostThread{wake: make(chan struct{}, 1)}
}

func (c *hostCPU) Attach(stack []uintptr, bootSP uint32, trap func()) {
	c.stack = stack
	c.trap = trap
	c.saved = make(map[uint32]*hostThread)
	c.cur = newHostThread()
	c.cur.sp = bootSP
}

func (c *hostCPU) DisableInterrupts() uintptr {
	state := c.mask
	c.mask = 1
	return state
}

func (c *hostCPU) RestoreInterrupts(state uintptr) {
	c.mask = state
	if state == 0 {
		c.deliver()
	}
}

func (c *hostCPU) PendReschedule() {
	c.pending.Store(true)
	c.wakeup()
}

func (c *hostCPU) WaitForInterrupt() {
	if c.pending.Load() || len(c.irqs) > 0 {
		return
	}
	<-c.kick
}

func (c *hostCPU) Frame() arch.Frame { return c.frame }

// EntryAddress hands out fake code addresses so a frame's PC slot can be
// decoded back into the task body on first restore.
func (c *hostCPU) EntryAddress(fn arch.Entry) uintptr {
	pc := c.nextPC
	c.nextPC += 4
	c.entries[pc] = fn
	return pc
}

func (c *hostCPU) SaveContext() uint32 {
	w := uint32(c.frame.Words)
	sp := c.cur.sp - w
	frame := c.stack[sp : sp+w]
	for i := range frame {
		frame[i] = 0
	}
	frame[c.frame.PSR] = c.frame.PSRInit
	c.saved[sp] = c.cur
	return sp
}

func (c *hostCPU) RestoreContext(sp uint32) {
	w := uint32(c.frame.Words)
	prev := c.cur
	next, ok := c.saved[sp]
	if ok {
		delete(c.saved, sp)
	} else {
		frame := c.stack[sp : sp+w]
		entry := c.entries[frame[c.frame.PC]]
		if entry == nil {
			panic(fmt.Sprintf("hal: no task body at pc %#x (sp %d)", frame[c.frame.PC], sp))
		}
		next = newHostThread()
		go c.launch(next, entry, frame[c.frame.Arg])
	}
	next.sp = sp + w
	c.cur = next
	if next == prev {
		return
	}
	next.wake <- struct{}{}
	<-prev.wake
}

// launch is a fresh task's first instructions: wait to be scheduled, leave
// the trap, then run the body.
func (c *hostCPU) launch(th *hostThread, entry arch.Entry, arg uintptr) {
	<-th.wake
	defer c.recoverHalt()
	c.RestoreInterrupts(0)
	entry(arg)
}

// raise queues fn as an interrupt handler for the running context. It is
// safe to call from any goroutine.
func (c *hostCPU) raise(fn func()) {
	select {
	case c.irqs <- fn:
	default:
		c.dropped.Add(1)
	}
	c.wakeup()
}

func (c *hostCPU) wakeup() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// deliver takes queued interrupts, then the reschedule trap, until neither
// is pending. A context switched out inside the trap finishes the loop when
// it is resumed.
func (c *hostCPU) deliver() {
	th := c.cur
	if th == nil || th.delivering {
		return
	}
	th.delivering = true
	defer func() { th.delivering = false }()

	for {
		select {
		case fn := <-c.irqs:
			c.mask = 1
			fn()
			c.mask = 0
			continue
		default:
		}
		if c.trap != nil && c.pending.CompareAndSwap(true, false) {
			c.trap()
			continue
		}
		return
	}
}

// recoverHalt parks a context that panicked. Every other context is already
// parked, so the machine stops.
func (c *hostCPU) recoverHalt() {
	r := recover()
	if r == nil {
		return
	}
	c.halted.Store(fmt.Errorf("cpu halted: %v", r))
	select {}
}

// Halted returns the reason the machine stopped, if it has.
func (c *hostCPU) Halted() error {
	if err, ok := c.halted.Load().(error); ok {
		return err
	}
	return nil
}

// Run calls boot as the initial context and parks the machine if it panics.
func (c *hostCPU) Run(boot func()) {
	defer c.recoverHalt()
	boot()
}

// Dropped returns the number of interrupts lost to a full queue.
func (c *hostCPU) Dropped() uint64 { return c.dropped.Load() }
