package kernel

// critical is an interrupt-mask section. Acquire with k.enter() and always
// pair with release, normally as `defer k.enter().release()`.
type critical struct {
	p     Port
	state uintptr
}

func (k *Kernel) enter() critical {
	return critical{p: k.port, state: k.port.DisableInterrupts()}
}

func (c critical) release() {
	c.p.RestoreInterrupts(c.state)
}
