package app

import (
	"strings"
	"testing"

	"rtk/kernel"
)

func TestAppendTaskTable(t *testing.T) {
	infos := []kernel.TaskInfo{
		{ID: 0, Priority: 0, State: kernel.Running, StackBase: 256, StackPointer: 256},
		{ID: 1, Priority: 4, State: kernel.Waiting, StackBase: 512, StackPointer: 496},
		{ID: 2, StackBase: 768, StackPointer: 768},
	}
	names := []string{"idle", "blinker"}

	lines := appendTaskTable(nil, infos, names, 256)
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want header and two rows", lines)
	}
	if !strings.HasPrefix(lines[1], " 0 idle") || !strings.Contains(lines[1], "running") {
		t.Fatalf("idle row = %q", lines[1])
	}
	row := lines[2]
	for _, want := range []string{"blinker", "  4 ", "waiting", "64B/1.00KB"} {
		if !strings.Contains(row, want) {
			t.Fatalf("row %q does not contain %q", row, want)
		}
	}
}

func TestTakeRunes(t *testing.T) {
	prefix, rest := takeRunes("héllo", 2)
	if prefix != "hé" || rest != "llo" {
		t.Fatalf("takeRunes() = %q, %q, want %q, %q", prefix, rest, "hé", "llo")
	}
	if prefix, rest := takeRunes("ab", 5); prefix != "ab" || rest != "" {
		t.Fatalf("takeRunes(short) = %q, %q", prefix, rest)
	}
}
