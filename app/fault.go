package app

import (
	"fmt"
	"strings"

	"rtk/kernel"
)

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
	ansiReset  = "\x1b[0m"
)

// onFault is the kernel fault handler. It runs with interrupts masked and
// must not call back into the kernel.
func (s *system) onFault(info kernel.FaultInfo) {
	if !info.Kind.Fatal() {
		s.log.WriteLineString(ansiYellow + "rtk: " + info.Error() + ansiReset)
		return
	}

	s.log.WriteLineString(ansiRed + "rtk: " + info.Error() + ansiReset)
	lines := faultLines(info, s.taskName(info.Task))
	for _, line := range lines[1:] {
		s.log.WriteLineString(line)
	}
	s.fault.Store(&info)

	if s.disp == nil {
		return
	}
	s.disp.fb.ClearRGB(colorWhite.R, colorWhite.G, colorWhite.B)
	s.disp.textRows(lines, 0, 0, colorRed)
	_ = s.disp.Display()
}

func faultLines(info kernel.FaultInfo, task string) []string {
	lines := []string{
		"rtk fault:",
		fmt.Sprintf("kind: %s", info.Kind),
		fmt.Sprintf("task: %d (%s)", info.Task, task),
	}
	if info.Detail != "" {
		lines = append(lines, "detail: "+info.Detail)
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
	}
	return lines
}
