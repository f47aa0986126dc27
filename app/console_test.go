//go:build !tinygo

package app

import (
	"testing"

	"rtk/hal"
	"rtk/kernel"
)

func newTestConsole(t *testing.T) (*console, hal.Framebuffer) {
	t.Helper()
	h := hal.New()
	k, err := kernel.New(h.CPU(), kernel.DefaultConfig())
	if err != nil {
		t.Fatalf("kernel.New() err = %v", err)
	}
	d := newFBDisplay(h)
	if d == nil {
		t.Fatal("newFBDisplay() = nil on the host HAL")
	}
	c := newConsole(k, d)
	if c == nil {
		t.Fatal("newConsole() = nil")
	}
	return c, d.fb
}

// lit reports whether any pixel in rows [y0, y1) is not black.
func lit(fb hal.Framebuffer, y0, y1 int) bool {
	buf := fb.Buffer()
	stride := fb.StrideBytes()
	for _, b := range buf[y0*stride : y1*stride] {
		if b != 0 {
			return true
		}
	}
	return false
}

func TestConsoleFlushDrawsPostedLines(t *testing.T) {
	c, fb := newTestConsole(t)
	top := int(c.top())
	if top <= 0 || top >= fb.Height() {
		t.Fatalf("top() = %d, want inside a %d-row screen", top, fb.Height())
	}

	c.post("hello from a task")
	c.post("second line")
	if got := c.flush(); got != 2 {
		t.Fatalf("flush() = %d, want 2", got)
	}
	if !lit(fb, top, fb.Height()) {
		t.Fatal("console region is blank after flush")
	}
	if lit(fb, 0, top) {
		t.Fatal("console drew above its region")
	}
	if got := c.flush(); got != 0 {
		t.Fatalf("second flush() = %d, want 0", got)
	}
}

func TestConsoleDropsWhenFull(t *testing.T) {
	c, _ := newTestConsole(t)
	for i := 0; i < consoleSlots+3; i++ {
		c.post("line")
	}
	if got := c.dropped.Load(); got != 3 {
		t.Fatalf("dropped = %d, want 3", got)
	}
	if got := c.flush(); got != consoleSlots {
		t.Fatalf("flush() = %d, want %d", got, consoleSlots)
	}
}

func TestConsoleViewBlitHonorsScroll(t *testing.T) {
	_, fb := newTestConsole(t)
	d := &fbDisplay{fb: fb}
	v := newConsoleView(d, 4, 3, 10)

	v.SetPixel(0, 0, colorWhite)
	v.SetScroll(1)
	v.blit()

	// Line 0 of the strip is shown last once the view starts at line 1.
	off := (10+2)*fb.StrideBytes()
	if buf := fb.Buffer(); buf[off] != 0xFF || buf[off+1] != 0xFF {
		t.Fatalf("pixel at screen row 12 = %#x %#x, want white", buf[off], buf[off+1])
	}
	if lit(fb, 10, 12) {
		t.Fatal("rows above the wrapped line are not blank")
	}

	v.SetScroll(-1)
	if v.scroll != 2 {
		t.Fatalf("SetScroll(-1) scroll = %d, want 2", v.scroll)
	}
}

func TestConsoleNilIsSafe(t *testing.T) {
	var c *console
	c.post("ignored")
	if got := c.flush(); got != 0 {
		t.Fatalf("flush() on nil console = %d, want 0", got)
	}
	if got := c.top(); got != 0 {
		t.Fatalf("top() on nil console = %d, want 0", got)
	}
}
