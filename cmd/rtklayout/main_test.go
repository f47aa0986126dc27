//go:build !tinygo

package main

import (
	"bytes"
	"strings"
	"testing"

	"rtk/app"
)

func TestRunPrintsSlotsAndFrame(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, app.DefaultConfig(), 0x2000_0000, 0x0800_0100, 7); err != nil {
		t.Fatalf("run() err = %v", err)
	}
	text := out.String()

	for _, want := range []string{
		"6 slots x ",
		"boot context (idle)",
		"sample task",
		"initial frame of task ",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}

	regs := map[string]string{"r0": "7", "pc": "8000100", "xpsr": "1000000"}
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		if want, ok := regs[fields[1]]; ok {
			if !strings.HasSuffix(fields[2], want) {
				t.Fatalf("%s = %s, want ...%s", fields[1], fields[2], want)
			}
			delete(regs, fields[1])
		}
	}
	if len(regs) != 0 {
		t.Fatalf("registers not printed: %v\n%s", regs, text)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.Priorities = 40
	cfg.Demo = false
	if err := run(&bytes.Buffer{}, cfg, 0, 0, 0); err == nil {
		t.Fatal("run() err = nil for 40 priorities")
	}
}

func TestRunRejectsRegionPastAddressSpace(t *testing.T) {
	cfg := app.DefaultConfig()
	var out bytes.Buffer
	if err := run(&out, cfg, 0xFFFF_F000, 0, 0); err == nil {
		t.Fatalf("run() err = nil for a region that wraps, output:\n%s", out.String())
	}
	if out.Len() != 0 {
		t.Fatalf("run() wrote %q before rejecting the region", out.String())
	}

	size := uint32(cfg.Tasks * cfg.StackBytes)
	if err := run(&bytes.Buffer{}, cfg, -size, 0, 0); err != nil {
		t.Fatalf("run() err = %v for a region ending exactly at 4GiB", err)
	}
}
