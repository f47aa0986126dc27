//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"sync"

	"github.com/mattn/go-colorable"
)

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	t      *hostTime
	cpu    *hostCPU
}

// New returns a host HAL implementation.
func New() HAL {
	logger := &hostLogger{w: colorable.NewColorableStdout()}
	cpu := newHostCPU()
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		fb:     newHostFramebuffer(320, 240),
		kbd:    &hostKeyboard{cpu: cpu},
		t:      &hostTime{cpu: cpu},
		cpu:    cpu,
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) CPU() CPU         { return h.cpu }

// Boot starts boot as the initial CPU context and returns. A panic that
// escapes it halts the machine; see Halted.
func Boot(h HAL, boot func()) {
	if hh, ok := h.(*hostHAL); ok {
		go hh.cpu.Run(boot)
		return
	}
	go boot()
}

// Halted reports why the host machine stopped, or nil while it runs.
func Halted(h HAL) error {
	if hh, ok := h.(*hostHAL); ok {
		return hh.cpu.Halted()
	}
	return nil
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
	l.logger.WriteLineString("led: LOW")
}

func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
