package arch

// CortexM3 is the Cortex-M3 thread-mode frame without FP state. ARMv8-M
// mainline stacks the same basic frame, so the Pico 2 (Cortex-M33) port uses
// it unchanged.
//
// Exception entry pushes the upper eight words; the PendSV handler pushes
// R4-R11 below them. Read from the saved stack pointer upwards:
//
//	word  register
//	 0-7  R4 .. R11   (software-saved)
//	 8    R0          first parameter
//	 9    R1
//	10    R2
//	11    R3
//	12    R12
//	13    LR
//	14    PC          resume address
//	15    xPSR        T bit (bit 24) must be set
var CortexM3 = Frame{
	Words:   16,
	Arg:     8,
	LR:      13,
	PC:      14,
	PSR:     15,
	PSRInit: 0x01000000,

	Registers: []string{
		"r4", "r5", "r6", "r7", "r8", "r9", "r10", "r11",
		"r0", "r1", "r2", "r3", "r12", "lr", "pc", "xpsr",
	},
}
