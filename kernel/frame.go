package kernel

// buildFrame writes the context of a task that has never run just below
// base, shaped as if it had been preempted at pc with arg in the first
// parameter register, and returns the resulting stack pointer.
func (k *Kernel) buildFrame(base uint32, pc, arg uintptr) uint32 {
	f := k.frame
	sp := base - uint32(f.Words)
	words := k.stack[sp:base]
	for i := range words {
		words[i] = 0
	}
	words[f.PSR] = f.PSRInit
	words[f.PC] = pc
	words[f.Arg] = arg
	return sp
}
