package app

import (
	"image/color"
	"sync/atomic"

	"rtk/kernel"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyterm"
)

const (
	consoleRows  = 10
	consoleSlots = 16

	msgLog uint8 = 0x10
)

// console is the event log under the monitor. Tasks and interrupt handlers
// post short lines through a kernel mailbox; the idle loop drains them into
// a tinyterm terminal when it redraws.
type console struct {
	inbox   *kernel.Mailbox
	view    *consoleView
	term    *tinyterm.Terminal
	dropped atomic.Uint64
}

func newConsole(k *kernel.Kernel, d *fbDisplay) *console {
	if d == nil {
		return nil
	}
	lineH := int16(screenFont.YAdvance)
	if lineH <= 0 {
		return nil
	}
	w, h := d.Size()
	rows := int16(consoleRows)
	if fit := h / 2 / lineH; rows > fit {
		rows = fit
	}
	if rows <= 0 {
		return nil
	}

	view := newConsoleView(d, w, rows*lineH, h-rows*lineH)
	term := tinyterm.NewTerminal(view)
	term.Configure(&tinyterm.Config{
		Font:       screenFont,
		FontHeight: lineH,
		FontOffset: lineH - 2,
	})
	return &console{
		inbox: k.NewMailbox(consoleSlots),
		view:  view,
		term:  term,
	}
}

// post queues line for the console, cut to one message. It never blocks and
// may be called from interrupt context.
func (c *console) post(line string) {
	if c == nil {
		return
	}
	var msg kernel.Message
	msg.Kind = msgLog
	msg.SetPayload([]byte(line))
	if !c.inbox.TrySend(msg) {
		c.dropped.Add(1)
	}
}

// flush writes queued lines to the terminal and copies the view into the
// framebuffer. It returns the number of lines written. Only the idle loop
// calls it.
func (c *console) flush() int {
	if c == nil {
		return 0
	}
	n := 0
	for {
		msg, ok := c.inbox.TryRecv()
		if !ok {
			break
		}
		_, _ = c.term.Write(msg.Payload())
		_, _ = c.term.Write([]byte("\r\n"))
		n++
	}
	c.view.blit()
	return n
}

// top is the first framebuffer row the console covers.
func (c *console) top() int16 {
	if c == nil {
		return 0
	}
	return c.view.y0
}

// consoleView is an off-screen RGB565 strip for the terminal. The terminal
// scrolls by moving the first displayed line, the way a panel with hardware
// scrolling does, and blit applies that offset.
type consoleView struct {
	out    *fbDisplay
	w, h   int16
	y0     int16
	scroll int16
	buf    []uint16
}

var _ drivers.Displayer = (*consoleView)(nil)

func newConsoleView(out *fbDisplay, w, h, y0 int16) *consoleView {
	return &consoleView{
		out: out,
		w:   w,
		h:   h,
		y0:  y0,
		buf: make([]uint16, int(w)*int(h)),
	}
}

func (v *consoleView) Size() (x, y int16) { return v.w, v.h }

func (v *consoleView) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= v.w || y < 0 || y >= v.h {
		return
	}
	v.buf[int(y)*int(v.w)+int(x)] = rgb565(c)
}

// Display is a no-op: the view reaches the screen through blit.
func (v *consoleView) Display() error { return nil }

func (v *consoleView) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0 := clampInt(int(x), 0, int(v.w))
	y0 := clampInt(int(y), 0, int(v.h))
	x1 := clampInt(int(x)+int(width), 0, int(v.w))
	y1 := clampInt(int(y)+int(height), 0, int(v.h))
	pixel := rgb565(c)
	for py := y0; py < y1; py++ {
		row := v.buf[py*int(v.w) : (py+1)*int(v.w)]
		for px := x0; px < x1; px++ {
			row[px] = pixel
		}
	}
	return nil
}

func (v *consoleView) SetScroll(line int16) {
	if v.h <= 0 {
		return
	}
	v.scroll = (line%v.h + v.h) % v.h
}

func (v *consoleView) SetRotation(drivers.Rotation) error { return nil }

// blit copies the strip into the framebuffer, starting with the line at the
// scroll offset.
func (v *consoleView) blit() {
	buf := v.out.fb.Buffer()
	stride := v.out.fb.StrideBytes()
	w, h := int(v.w), int(v.h)
	for y := 0; y < h; y++ {
		src := v.buf[((y+int(v.scroll))%h)*w:][:w]
		off := (int(v.y0) + y) * stride
		if off+2*w > len(buf) {
			return
		}
		for x, p := range src {
			buf[off+2*x] = byte(p)
			buf[off+2*x+1] = byte(p >> 8)
		}
	}
}
