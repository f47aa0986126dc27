package kernel

import "rtk/arch"

// Port is the architecture layer underneath the kernel: interrupt masking,
// the reschedule trap, and the opaque register save/restore pair.
type Port interface {
	// Attach hands the port the stack region, the boot context's stack
	// pointer and the reschedule trap handler. New calls it exactly once.
	Attach(stack []uintptr, bootSP uint32, trap func())

	// DisableInterrupts masks interrupts and returns the previous mask state.
	DisableInterrupts() uintptr
	// RestoreInterrupts restores a state returned by DisableInterrupts.
	// Pending interrupts may be taken before it returns.
	RestoreInterrupts(state uintptr)

	// PendReschedule requests the reschedule trap. Requesting it again
	// before it runs has no further effect.
	PendReschedule()
	// WaitForInterrupt sleeps until an interrupt is pending.
	WaitForInterrupt()

	// Frame returns the saved-context layout that RestoreContext consumes.
	Frame() arch.Frame
	// EntryAddress returns the resume address to store for a task body.
	EntryAddress(fn arch.Entry) uintptr

	// SaveContext pushes the running context onto its own stack and returns
	// the resulting stack pointer. Only valid inside the trap.
	SaveContext() uint32
	// RestoreContext resumes the context saved at sp. Only valid inside the
	// trap.
	RestoreContext(sp uint32)
}

// StackProvider is implemented by ports that need task stacks in memory of
// their choosing, such as a static array the garbage collector scans as a
// root. Ports without it get a heap-allocated region.
type StackProvider interface {
	// StackRegion returns a zeroed region of at least words words.
	StackRegion(words int) []uintptr
}
