//go:build !tinygo

package app

import (
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

// fileConfig is the on-disk form of Config. Absent fields keep the base
// value.
type fileConfig struct {
	Demo          *bool  `yaml:"demo"`
	Trace         *bool  `yaml:"trace"`
	Tasks         int    `yaml:"tasks"`
	Priorities    int    `yaml:"priorities"`
	StackSize     string `yaml:"stack_size"`
	MonitorPeriod uint64 `yaml:"monitor_ms"`
}

// LoadConfig reads a YAML config file over base.
func LoadConfig(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data, base)
	if err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over base. Unknown keys are an error.
func ParseConfig(data []byte, base Config) (Config, error) {
	var fc fileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return base, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	cfg := base
	if fc.Demo != nil {
		cfg.Demo = *fc.Demo
	}
	if fc.Trace != nil {
		cfg.Trace = *fc.Trace
	}
	if fc.Tasks != 0 {
		cfg.Tasks = fc.Tasks
	}
	if fc.Priorities != 0 {
		cfg.Priorities = fc.Priorities
	}
	if fc.MonitorPeriod != 0 {
		cfg.MonitorPeriod = fc.MonitorPeriod
	}
	if fc.StackSize != "" {
		size, err := bytesize.Parse(fc.StackSize)
		if err != nil {
			return base, fmt.Errorf("%w: stack_size %q: %v", ErrConfig, fc.StackSize, err)
		}
		if size <= 0 || size > MaxStackBytes {
			return base, fmt.Errorf("%w: stack_size %q not in (0, %s]", ErrConfig, fc.StackSize, bytesize.New(MaxStackBytes))
		}
		cfg.StackBytes = int(size)
	}
	if _, err := cfg.KernelConfig(); err != nil {
		return base, err
	}
	return cfg, nil
}
