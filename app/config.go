package app

import (
	"errors"
	"fmt"

	"rtk/kernel"

	"github.com/inhies/go-bytesize"
)

const (
	// Stacks are sized for the 32-bit target even when running on the host.
	wordBytes = 4

	// MaxStackBytes bounds one task stack.
	MaxStackBytes = 1 << 20
)

var ErrConfig = errors.New("invalid config")

// Config selects what the OS runs and how the kernel is sized.
type Config struct {
	Demo  bool
	Trace bool

	Tasks      int
	Priorities int
	StackBytes int

	// MonitorPeriod is the monitor refresh interval in ticks (ms).
	MonitorPeriod uint64
}

func DefaultConfig() Config {
	return Config{
		Demo:          true,
		Tasks:         kernel.DefaultTasks,
		Priorities:    kernel.DefaultPriorities,
		StackBytes:    kernel.DefaultStackWords * wordBytes,
		MonitorPeriod: 100,
	}
}

// KernelConfig validates c and converts it to the kernel's sizing.
func (c Config) KernelConfig() (kernel.Config, error) {
	if c.StackBytes <= 0 || c.StackBytes%wordBytes != 0 {
		return kernel.Config{}, fmt.Errorf("%w: stack size %d is not a positive multiple of %d bytes", ErrConfig, c.StackBytes, wordBytes)
	}
	if c.StackBytes > MaxStackBytes {
		return kernel.Config{}, fmt.Errorf("%w: stack size %d exceeds %d bytes", ErrConfig, c.StackBytes, MaxStackBytes)
	}
	if c.Tasks < 2 || c.Tasks > kernel.MaxTasks {
		return kernel.Config{}, fmt.Errorf("%w: tasks %d not in [2, %d]", ErrConfig, c.Tasks, kernel.MaxTasks)
	}
	if c.Priorities < 1 || c.Priorities > kernel.MaxPriorities {
		return kernel.Config{}, fmt.Errorf("%w: priorities %d not in [1, %d]", ErrConfig, c.Priorities, kernel.MaxPriorities)
	}
	if c.Demo && (c.Tasks < demoTasks+1 || c.Priorities < demoPriorities) {
		return kernel.Config{}, fmt.Errorf("%w: demo needs %d tasks and %d priorities", ErrConfig, demoTasks+1, demoPriorities)
	}
	return kernel.Config{
		Tasks:      c.Tasks,
		Priorities: c.Priorities,
		StackWords: c.StackBytes / wordBytes,
	}, nil
}

// StackSize formats the per-task stack size for humans.
func (c Config) StackSize() string {
	return bytesize.New(float64(c.StackBytes)).String()
}
