package hal

import (
	"errors"

	"rtk/arch"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyEscape
	KeySpace
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard delivers key events as interrupts: the handler runs in interrupt
// context on the CPU returned by HAL.CPU.
type Keyboard interface {
	SetHandler(fn func(KeyEvent))
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Time is the periodic system timer. Start arranges for fn to run in
// interrupt context once per millisecond; seq counts from 1.
type Time interface {
	Start(fn func(seq uint64))
}

// CPU is the processor the kernel runs on: interrupt masking, the
// reschedule trap and register save/restore.
type CPU interface {
	Attach(stack []uintptr, bootSP uint32, trap func())
	DisableInterrupts() uintptr
	RestoreInterrupts(state uintptr)
	PendReschedule()
	WaitForInterrupt()
	Frame() arch.Frame
	EntryAddress(fn arch.Entry) uintptr
	SaveContext() uint32
	RestoreContext(sp uint32)
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Input() Input
	Time() Time
	CPU() CPU
}
