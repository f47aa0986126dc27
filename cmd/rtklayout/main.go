//go:build !tinygo

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"rtk/app"
	"rtk/arch"
	"rtk/internal/buildinfo"
	"rtk/kernel"

	"github.com/inhies/go-bytesize"
)

// layoutPort is a kernel port that never runs anything. It only keeps the
// stack region so the tool can read the frames the kernel builds.
type layoutPort struct {
	stack []uintptr
	pc    uintptr
}

func (p *layoutPort) Attach(stack []uintptr, _ uint32, _ func()) { p.stack = stack }
func (p *layoutPort) DisableInterrupts() uintptr                 { return 0 }
func (p *layoutPort) RestoreInterrupts(uintptr)                  {}
func (p *layoutPort) PendReschedule()                            {}
func (p *layoutPort) WaitForInterrupt()                          {}
func (p *layoutPort) Frame() arch.Frame                          { return arch.CortexM3 }
func (p *layoutPort) EntryAddress(arch.Entry) uintptr            { return p.pc }
func (p *layoutPort) SaveContext() uint32                        { return 0 }
func (p *layoutPort) RestoreContext(uint32)                      {}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults apply when empty).")
		baseStr    = flag.String("base", "0x20000000", "Address of the stack region.")
		pcStr      = flag.String("pc", "0x08000100", "Entry address written into the sample frame.")
		arg        = flag.Uint64("arg", 0, "Argument written into the sample frame.")
		version    = flag.Bool("version", false, "Print the build identifier and exit.")
	)
	flag.Parse()

	if *version {
		fmt.Println("rtklayout " + buildinfo.String())
		return
	}

	cfg := app.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = app.LoadConfig(*configPath, cfg); err != nil {
			fatalf("%v", err)
		}
	}
	base, err := strconv.ParseUint(*baseStr, 0, 32)
	if err != nil {
		fatalf("invalid -base %q: %v", *baseStr, err)
	}
	pc, err := strconv.ParseUint(*pcStr, 0, 32)
	if err != nil {
		fatalf("invalid -pc %q: %v", *pcStr, err)
	}

	if err := run(os.Stdout, cfg, uint32(base), uintptr(pc), uintptr(*arg)); err != nil {
		fatalf("%v", err)
	}
}

// run prints the slot map for cfg and the initial frame of the first task.
func run(w io.Writer, cfg app.Config, base uint32, pc, arg uintptr) error {
	kcfg, err := cfg.KernelConfig()
	if err != nil {
		return err
	}
	port := &layoutPort{pc: pc}
	k, err := kernel.New(port, kcfg)
	if err != nil {
		return err
	}
	id, err := k.CreateTask(func(uintptr) {}, arg, 1)
	if err != nil {
		return fmt.Errorf("create sample task: %w", err)
	}

	slotBytes := kcfg.StackWords * 4
	if end := uint64(base) + uint64(slotBytes)*uint64(kcfg.Tasks); end > 1<<32 {
		return fmt.Errorf("stack region %#08x + %d bytes ends past the 32-bit address space", base, slotBytes*kcfg.Tasks)
	}
	fmt.Fprintf(w, "stack region: %d slots x %s = %s at %#08x\n\n",
		kcfg.Tasks, bytesize.New(float64(slotBytes)), bytesize.New(float64(slotBytes*kcfg.Tasks)), base)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "slot\tlow\ttop\tnote")
	for _, info := range k.Tasks(nil) {
		note := ""
		switch info.ID {
		case kernel.IdleTask:
			note = "boot context (idle)"
		case id:
			note = "sample task"
		}
		top := uint64(base) + uint64(info.StackBase)*4
		low := top - uint64(slotBytes)
		fmt.Fprintf(tw, "%d\t%#08x\t%#08x\t%s\n", info.ID, low, top, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	info, _ := k.Task(id)
	frame := arch.CortexM3
	fmt.Fprintf(w, "\ninitial frame of task %d: sp = word %d (%#08x)\n", id, info.StackPointer, uint64(base)+uint64(info.StackPointer)*4)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i := 0; i < frame.Words; i++ {
		v := port.stack[int(info.StackPointer)+i]
		fmt.Fprintf(tw, "  +%d\t%s\t%#08x\n", i*4, frame.Registers[i], v)
	}
	return tw.Flush()
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "rtklayout: "+format+"\n", args...)
	os.Exit(2)
}
