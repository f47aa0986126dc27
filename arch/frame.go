// Package arch describes the pieces of a CPU architecture the kernel needs to
// know about without touching registers itself.
package arch

// Entry is a task body. It receives the argument given at creation time in
// the first-parameter register and must never return.
type Entry func(arg uintptr)

// Frame is the layout of a saved register context on a task stack.
//
// Slot indices are word offsets from the saved stack pointer (the lowest
// address of the frame). The restore primitive consumes exactly Words words.
type Frame struct {
	Words int

	PSR int
	PC  int
	LR  int
	Arg int

	// PSRInit is the status word of a task that has never run.
	PSRInit uintptr

	// Registers optionally names each word, lowest address first.
	Registers []string
}

// Valid reports whether every slot lies inside the frame and no two named
// slots overlap.
func (f Frame) Valid() bool {
	if f.Words <= 0 {
		return false
	}
	if len(f.Registers) != 0 && len(f.Registers) != f.Words {
		return false
	}
	slots := [...]int{f.PSR, f.PC, f.LR, f.Arg}
	for i, s := range slots {
		if s < 0 || s >= f.Words {
			return false
		}
		for _, o := range slots[i+1:] {
			if s == o {
				return false
			}
		}
	}
	return true
}
