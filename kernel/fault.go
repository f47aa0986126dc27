package kernel

import (
	"fmt"
	"sync/atomic"
)

// Fault classifies a kernel-detected error.
type Fault uint8

const (
	FaultNoRunnable Fault = iota + 1
	FaultQueueCorrupt
	FaultUninitialized
	FaultNotOwner
	FaultIdleBlocked
	FaultTaskReturned
)

func (f Fault) String() string {
	switch f {
	case FaultNoRunnable:
		return "no runnable task"
	case FaultQueueCorrupt:
		return "queue corrupt"
	case FaultUninitialized:
		return "uninitialized primitive"
	case FaultNotOwner:
		return "release by non-owner"
	case FaultIdleBlocked:
		return "idle task would block"
	case FaultTaskReturned:
		return "task entry returned"
	default:
		return "unknown fault"
	}
}

// Fatal reports whether the fault halts the kernel. Non-fatal faults are
// reported and the offending call is ignored.
func (f Fault) Fatal() bool {
	switch f {
	case FaultNotOwner, FaultIdleBlocked:
		return false
	}
	return true
}

// FaultInfo describes one fault.
type FaultInfo struct {
	Kind   Fault
	Task   TaskID
	Detail string
	Stack  []byte
}

func (i FaultInfo) Error() string {
	if i.Detail == "" {
		return fmt.Sprintf("kernel fault: %s (task %d)", i.Kind, i.Task)
	}
	return fmt.Sprintf("kernel fault: %s (task %d): %s", i.Kind, i.Task, i.Detail)
}

var (
	halted       atomic.Bool
	faultHandler atomic.Value // func(FaultInfo)
)

// Halted reports whether a fatal fault has occurred.
func Halted() bool {
	return halted.Load()
}

// SetFaultHandler installs a process-wide fault handler. It is called for
// every fault, with interrupts masked when raised from inside the kernel,
// and must not call back into the kernel.
func SetFaultHandler(fn func(FaultInfo)) {
	faultHandler.Store(fn)
}

// reportFault hands info to the handler. Fatal faults then halt by
// panicking with info.
func reportFault(info FaultInfo) {
	if info.Kind.Fatal() {
		halted.Store(true)
		info.Stack = captureStack()
	}
	if v := faultHandler.Load(); v != nil {
		if fn, ok := v.(func(FaultInfo)); ok && fn != nil {
			fn(info)
		}
	}
	if info.Kind.Fatal() {
		panic(info)
	}
}

func (k *Kernel) fault(kind Fault, detail string) {
	reportFault(FaultInfo{Kind: kind, Task: k.running, Detail: detail})
}
