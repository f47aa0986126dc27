//go:build !tinygo

package hal

import (
	"sync/atomic"
	"time"
)

// hostTime turns wall-clock progress into 1ms timer interrupts on the host
// CPU. It is stepped by the runner loop.
type hostTime struct {
	cpu *hostCPU
	fn  atomic.Pointer[func(uint64)]
	seq uint64

	last time.Time
	acc  time.Duration
}

func (t *hostTime) Start(fn func(seq uint64)) {
	t.fn.Store(&fn)
}

func (t *hostTime) step(n uint64) {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(n)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	const tickDur = time.Millisecond
	ticks := uint64(t.acc / tickDur)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % tickDur
	t.stepN(ticks)
}

func (t *hostTime) stepN(n uint64) {
	p := t.fn.Load()
	for i := uint64(0); i < n; i++ {
		t.seq++
		if p == nil {
			continue
		}
		fn, seq := *p, t.seq
		t.cpu.raise(func() { fn(seq) })
	}
}
