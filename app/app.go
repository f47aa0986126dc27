package app

import (
	"fmt"
	"sync/atomic"

	"rtk/hal"
	"rtk/internal/buildinfo"
	"rtk/kernel"
)

type system struct {
	h    hal.HAL
	cfg  Config
	k    *kernel.Kernel
	log  hal.Logger
	disp *fbDisplay
	con  *console
	mon  monitor
	demo *demo

	names   []string
	lastMon uint64
	fault   atomic.Pointer[kernel.FaultInfo]
}

// New initializes and starts the OS with default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, DefaultConfig())
}

// Run starts the OS and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, DefaultConfig())
}

// NewWithConfig builds the kernel, starts the boot context and returns a
// step function for the host runner. The step reports a fatal kernel fault.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	hal.Boot(h, s.run)
	return s.step
}

func RunWithConfig(h hal.HAL, cfg Config) {
	s, err := newSystem(h, cfg)
	if err != nil {
		h.Logger().WriteLineString("rtk: " + err.Error())
		select {}
	}
	hal.Boot(h, s.run)
	select {}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	kcfg, err := cfg.KernelConfig()
	if err != nil {
		return nil, err
	}
	s := &system{
		h:     h,
		cfg:   cfg,
		log:   h.Logger(),
		disp:  newFBDisplay(h),
		names: make([]string, cfg.Tasks),
	}
	if cfg.Trace {
		kcfg.OnSwitch = s.traceSwitch
	}
	kernel.SetFaultHandler(s.onFault)

	k, err := kernel.New(h.CPU(), kcfg)
	if err != nil {
		return nil, fmt.Errorf("start kernel: %w", err)
	}
	s.k = k
	s.con = newConsole(k, s.disp)
	s.names[kernel.IdleTask] = "idle"
	s.mon = monitor{k: k, d: s.disp, con: s.con, names: s.names}

	s.log.WriteLineString("rtk " + buildinfo.String() + " booting")
	s.con.post("rtk " + buildinfo.Short() + " booting")
	s.log.WriteLineString(fmt.Sprintf("kernel: %d tasks, %d priorities, %s stacks",
		cfg.Tasks, cfg.Priorities, cfg.StackSize()))

	if cfg.Demo {
		s.demo = newDemo(k, h, s.con)
		for _, t := range s.demo.tasks() {
			id, err := k.CreateTask(t.entry, 0, t.prio)
			if err != nil {
				return nil, fmt.Errorf("create %s: %w", t.name, err)
			}
			s.names[id] = t.name
			line := fmt.Sprintf("task %d: %s (priority %d)", id, t.name, t.prio)
			s.log.WriteLineString(line)
			s.con.post(line)
		}
	}
	return s, nil
}

// run is the boot context, which becomes the idle task. It starts the
// interrupt sources, lets the tasks run, and then redraws the monitor
// between sleeps.
func (s *system) run() {
	if in := s.h.Input(); in != nil && s.demo != nil {
		if kbd := in.Keyboard(); kbd != nil {
			kbd.SetHandler(s.demo.key)
		}
	}
	if t := s.h.Time(); t != nil {
		t.Start(s.onTick)
	}
	s.k.Yield()

	for {
		if now := s.k.Ticks(); now-s.lastMon >= s.cfg.MonitorPeriod {
			s.lastMon = now
			status := ""
			if s.demo != nil {
				status = s.demo.status()
			}
			s.mon.render(status)
		}
		s.k.Idle()
	}
}

// onTick runs in the timer interrupt.
func (s *system) onTick(seq uint64) {
	s.k.Tick()
	if s.demo != nil {
		s.demo.tick(seq)
	}
}

func (s *system) step() error {
	if info := s.fault.Load(); info != nil {
		return *info
	}
	return nil
}

func (s *system) traceSwitch(from, to kernel.TaskID) {
	s.log.WriteLineString(fmt.Sprintf("%sswitch %s -> %s%s", ansiDim, s.taskName(from), s.taskName(to), ansiReset))
}

func (s *system) taskName(id kernel.TaskID) string {
	if int(id) < len(s.names) && s.names[id] != "" {
		return s.names[id]
	}
	return fmt.Sprintf("task%d", id)
}
