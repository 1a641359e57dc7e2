// Package gate installs the interrupt descriptor table and routes every
// interrupt, exception and software interrupt to a Go handler.
//
// Each of the 256 IDT slots points to a tiny generated stub (vectors_386.s)
// that normalizes the stack by pushing a placeholder error code when the CPU
// does not push one, pushes its vector number and jumps to a common
// trampoline. The trampoline saves the general purpose registers and the DS,
// ES and FS selectors, switches to the kernel data segment and calls dispatch
// with a pointer to the resulting Registers frame. Only DS is part of the
// frame; ES and FS are restored as they were found.
package gate

import (
	"io"

	"github.com/Harthann/Yak/kernel/gate/stubgen"
	"github.com/Harthann/Yak/kernel/kfmt"
)

// Registers is the frame built on the stack by the stubs and the trampoline.
// Fields appear in ascending address order. Handlers may modify any field;
// the trampoline restores the registers from the frame before returning to
// the interrupted code.
type Registers struct {
	// DS is the data segment selector of the interrupted code.
	DS uint32

	// Pushed by PUSHAL. ESP holds the value before PUSHAL ran and is
	// ignored by POPAL.
	EDI uint32
	ESI uint32
	EBP uint32
	ESP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32

	// Vector is pushed by the stub.
	Vector uint32

	// ErrorCode holds the CPU-pushed error code or 0 for vectors that have
	// none.
	ErrorCode uint32

	// The return frame used by IRETL.
	EIP    uint32
	CS     uint32
	EFlags uint32

	// UserESP and UserSS are only pushed by the CPU when the interrupt
	// arrives in ring 3.
	UserESP uint32
	UserSS  uint32
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EAX = %8x EBX = %8x\n", r.EAX, r.EBX)
	kfmt.Fprintf(w, "ECX = %8x EDX = %8x\n", r.ECX, r.EDX)
	kfmt.Fprintf(w, "ESI = %8x EDI = %8x\n", r.ESI, r.EDI)
	kfmt.Fprintf(w, "EBP = %8x ESP = %8x\n", r.EBP, r.ESP)
	kfmt.Fprintf(w, "DS  = %8x ERR = %8x\n", r.DS, r.ErrorCode)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "EIP = %8x CS  = %8x\n", r.EIP, r.CS)
	kfmt.Fprintf(w, "EFL = %8x\n", r.EFlags)
}

// InterruptNumber identifies an IDT slot.
type InterruptNumber uint8

const (
	// DivideByZero is raised by DIV and IDIV with a zero divisor or a
	// quotient too large for the destination.
	DivideByZero = InterruptNumber(0)

	// Debug is raised by debug registers and single stepping.
	Debug = InterruptNumber(1)

	// NMI is the non-maskable hardware interrupt.
	NMI = InterruptNumber(2)

	// Breakpoint is raised by INT3.
	Breakpoint = InterruptNumber(3)

	// Overflow is raised by INTO when the overflow flag is set.
	Overflow = InterruptNumber(4)

	// BoundRangeExceeded is raised by BOUND with an index out of range.
	BoundRangeExceeded = InterruptNumber(5)

	// InvalidOpcode is raised for undefined instructions.
	InvalidOpcode = InterruptNumber(6)

	// DeviceNotAvailable is raised by FPU instructions while no FPU is
	// usable.
	DeviceNotAvailable = InterruptNumber(7)

	// DoubleFault is raised when the CPU fails to deliver an exception.
	DoubleFault = InterruptNumber(8)

	// InvalidTSS is raised on a task switch to an invalid TSS.
	InvalidTSS = InterruptNumber(10)

	// SegmentNotPresent is raised when loading a non-present segment.
	SegmentNotPresent = InterruptNumber(11)

	// StackSegmentFault is raised on stack limit violations.
	StackSegmentFault = InterruptNumber(12)

	// GPFException is the general protection fault.
	GPFException = InterruptNumber(13)

	// PageFaultException is raised for non-present pages and protection
	// violations. CR2 holds the faulting address.
	PageFaultException = InterruptNumber(14)

	// FloatingPointException is the x87 floating point error.
	FloatingPointException = InterruptNumber(16)

	// AlignmentCheck is raised for unaligned accesses when alignment
	// checking is on.
	AlignmentCheck = InterruptNumber(17)

	// MachineCheck reports internal CPU or bus errors.
	MachineCheck = InterruptNumber(18)

	// SIMDFloatingPointException is raised by unmasked SSE exceptions.
	SIMDFloatingPointException = InterruptNumber(19)

	// Syscall is the software interrupt used by ring 3 code to enter the
	// kernel.
	Syscall = InterruptNumber(stubgen.SyscallVector)
)

// String returns a human readable name for n.
func (n InterruptNumber) String() string {
	return stubgen.Name(uint8(n))
}
