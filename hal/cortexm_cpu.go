//go:build tinygo && baremetal && cortexm

package hal

import (
	"device/arm"
	"machine"
	"unsafe"

	"rtk/arch"
)

// The PendSV handler and the stack switch in rtk_boot live in
// targets/rtk_cortexm.S, which targets/rtk-pico2.json adds to the link.

//go:extern rtk_trampolines
var trampolines [cortexmTrampolines]uintptr

//export rtk_boot
func rtkBoot(psp uintptr)

const (
	cortexmTrampolines = 8
	icsrPendSVSet      = 1 << 28

	// cortexmStackWords bounds Tasks*StackWords for the board: nine 1KiB
	// stacks.
	cortexmStackWords = 9 * 256
)

// taskStacks lives in .bss so the collector scans every task stack, saved
// contexts included, as a global root. With -scheduler=none it only scans
// the main stack otherwise.
var taskStacks [cortexmStackWords]uintptr

type cortexmCPU struct {
	frame arch.Frame
	stack []uintptr
	base  uintptr
	trap  func()

	bootSP  uint32
	psp     uintptr
	nextPSP uintptr

	entries [cortexmTrampolines]arch.Entry
	n       int
}

var cpu0 *cortexmCPU

func newCortexmCPU() *cortexmCPU {
	cpu0 = &cortexmCPU{frame: arch.CortexM3}
	return cpu0
}

func (c *cortexmCPU) Attach(stack []uintptr, bootSP uint32, trap func()) {
	c.stack = stack
	c.base = uintptr(unsafe.Pointer(&stack[0]))
	c.trap = trap
	c.bootSP = bootSP
	c.n = 0

	// PendSV and SysTick at the lowest priority so the trap never preempts
	// another handler.
	arm.SCB.SHPR3.Set(0xFFFF_0000 | arm.SCB.SHPR3.Get()&0xFFFF)
}

func (c *cortexmCPU) StackRegion(words int) []uintptr {
	if words > len(taskStacks) {
		return nil
	}
	region := taskStacks[:words]
	for i := range region {
		region[i] = 0
	}
	return region
}

func (c *cortexmCPU) DisableInterrupts() uintptr { return arm.DisableInterrupts() }

func (c *cortexmCPU) RestoreInterrupts(state uintptr) { arm.EnableInterrupts(state) }

func (c *cortexmCPU) PendReschedule() { arm.SCB.ICSR.Set(icsrPendSVSet) }

func (c *cortexmCPU) WaitForInterrupt() { arm.Asm("wfi") }

func (c *cortexmCPU) Frame() arch.Frame { return c.frame }

// EntryAddress binds fn to the next free trampoline. Task bodies are Go
// closures, so the exception return lands in a fixed C-ABI function that
// calls them with the first-parameter register.
func (c *cortexmCPU) EntryAddress(fn arch.Entry) uintptr {
	if c.n >= len(c.entries) {
		panic("hal: out of task trampolines")
	}
	c.entries[c.n] = fn
	pc := trampolines[c.n] &^ 1
	c.n++
	return pc
}

func (c *cortexmCPU) SaveContext() uint32 {
	return uint32((c.psp - c.base) / unsafe.Sizeof(uintptr(0)))
}

func (c *cortexmCPU) RestoreContext(sp uint32) {
	c.nextPSP = c.base + uintptr(sp)*unsafe.Sizeof(uintptr(0))
}

var bootFn func()

func (c *cortexmCPU) boot(fn func()) {
	bootFn = fn
	rtkBoot(c.base + uintptr(c.bootSP)*unsafe.Sizeof(uintptr(0)))
}

//export rtk_idle
func rtkIdle() {
	bootFn()
	for {
		arm.Asm("wfi")
	}
}

// rtkPendSV runs the reschedule trap with r4-r11 already pushed below the
// hardware frame at psp. It returns the stack pointer to resume.
//
//export rtk_pendsv
func rtkPendSV(psp uintptr) uintptr {
	c := cpu0
	c.psp = psp
	c.nextPSP = psp
	c.trap()
	return c.nextPSP
}

func runTrampoline(i int, arg uintptr) {
	cpu0.entries[i](arg)
}

//export rtk_task0
func rtkTask0(arg uintptr) { runTrampoline(0, arg) }

//export rtk_task1
func rtkTask1(arg uintptr) { runTrampoline(1, arg) }

//export rtk_task2
func rtkTask2(arg uintptr) { runTrampoline(2, arg) }

//export rtk_task3
func rtkTask3(arg uintptr) { runTrampoline(3, arg) }

//export rtk_task4
func rtkTask4(arg uintptr) { runTrampoline(4, arg) }

//export rtk_task5
func rtkTask5(arg uintptr) { runTrampoline(5, arg) }

//export rtk_task6
func rtkTask6(arg uintptr) { runTrampoline(6, arg) }

//export rtk_task7
func rtkTask7(arg uintptr) { runTrampoline(7, arg) }

type tinyGoTime struct{}

var tickFn func(uint64)
var tickSeq uint64

// Start programs SysTick for a 1ms period.
func (t *tinyGoTime) Start(fn func(seq uint64)) {
	tickFn = fn
	arm.SetupSystemTimer(machine.CPUFrequency() / 1000)
}

//export SysTick_Handler
func sysTickHandler() {
	tickSeq++
	if tickFn != nil {
		tickFn(tickSeq)
	}
}
