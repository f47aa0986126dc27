//go:build !tinygo

package hal

import "sync/atomic"

type hostKeyboard struct {
	cpu *hostCPU
	fn  atomic.Pointer[func(KeyEvent)]
}

func (k *hostKeyboard) SetHandler(fn func(KeyEvent)) {
	k.fn.Store(&fn)
}

// emit raises a keyboard interrupt carrying ev.
func (k *hostKeyboard) emit(ev KeyEvent) {
	p := k.fn.Load()
	if p == nil || *p == nil {
		return
	}
	fn := *p
	k.cpu.raise(func() { fn(ev) })
}
