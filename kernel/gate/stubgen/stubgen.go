// Package stubgen describes the per-vector interrupt entry stubs and renders
// them as Go assembly for the gate package.
//
// Every one of the 256 vectors gets its own stub. Stubs for vectors where the
// CPU pushes an error code push only the vector number; all other stubs push
// a zero placeholder first so that the common trampoline always finds the
// same frame layout.
package stubgen

// Vector space layout.
const (
	VectorCount    = 256
	ExceptionCount = 32
	IRQBase        = 32
	IRQCount       = 16
	SyscallVector  = 0x80
)

// Type/attribute bytes of the IDT gates: present 32-bit interrupt gates
// callable from ring 0 or from ring 3.
const (
	KernelGateAttributes = uint8(0x8e)
	UserGateAttributes   = uint8(0xee)
)

// errorCodeVectors are the exceptions for which the CPU pushes an error code.
var errorCodeVectors = [...]uint8{8, 10, 11, 12, 13, 14, 17, 21, 29, 30}

// HasErrorCode reports whether the CPU pushes an error code before entering
// the stub for vector.
func HasErrorCode(vector uint8) bool {
	for _, v := range errorCodeVectors {
		if v == vector {
			return true
		}
	}
	return false
}

// GateAttributes returns the attributes of the gate installed for vector.
// Only the syscall gate may be invoked from ring 3.
func GateAttributes(vector uint8) uint8 {
	if vector == SyscallVector {
		return UserGateAttributes
	}
	return KernelGateAttributes
}

// Class groups vectors by their source.
type Class uint8

const (
	ClassException Class = iota
	ClassIRQ
	ClassSyscall
	ClassUnassigned
)

var classNames = [...]string{"exception", "irq", "syscall", "unassigned"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "invalid"
}

// Classify returns the class of vector.
func Classify(vector uint8) Class {
	switch {
	case vector < ExceptionCount:
		return ClassException
	case vector < IRQBase+IRQCount:
		return ClassIRQ
	case vector == SyscallVector:
		return ClassSyscall
	default:
		return ClassUnassigned
	}
}

var exceptionNames = [ExceptionCount]string{
	"Divide Error",
	"Debug",
	"Non-maskable Interrupt",
	"Breakpoint",
	"Overflow",
	"Bound Range Exceeded",
	"Invalid Opcode",
	"Device Not Available",
	"Double Fault",
	"Coprocessor Segment Overrun",
	"Invalid TSS",
	"Segment Not Present",
	"Stack-Segment Fault",
	"General Protection Fault",
	"Page Fault",
	"Reserved",
	"x87 Floating-Point Exception",
	"Alignment Check",
	"Machine Check",
	"SIMD Floating-Point Exception",
	"Virtualization Exception",
	"Control Protection Exception",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Hypervisor Injection Exception",
	"VMM Communication Exception",
	"Security Exception",
	"Reserved",
}

// Name returns a human readable name for vector. It never allocates.
func Name(vector uint8) string {
	switch Classify(vector) {
	case ClassException:
		return exceptionNames[vector]
	case ClassIRQ:
		return "Hardware IRQ"
	case ClassSyscall:
		return "System Call"
	default:
		return "Unassigned"
	}
}

// OpKind is an instruction emitted by a stub.
type OpKind uint8

const (
	// OpDisableInterrupts clears the interrupt flag.
	OpDisableInterrupts OpKind = iota

	// OpPushImm pushes Op.Imm on the stack.
	OpPushImm

	// OpJumpTrampoline jumps to the common trampoline.
	OpJumpTrampoline
)

// Op is a single stub instruction.
type Op struct {
	Kind OpKind
	Imm  uint32
}

// Stub is the entry point installed in one IDT slot.
type Stub struct {
	Vector    uint8
	ErrorCode bool
}

// StubFor returns the stub for vector.
func StubFor(vector uint8) Stub {
	return Stub{Vector: vector, ErrorCode: HasErrorCode(vector)}
}

// Stubs returns the stubs for every vector in ascending order.
func Stubs() []Stub {
	stubs := make([]Stub, VectorCount)
	for v := range stubs {
		stubs[v] = StubFor(uint8(v))
	}
	return stubs
}

// Ops returns the instructions executed by s.
func (s Stub) Ops() []Op {
	ops := []Op{{Kind: OpDisableInterrupts}}
	if !s.ErrorCode {
		ops = append(ops, Op{Kind: OpPushImm, Imm: 0})
	}
	return append(ops,
		Op{Kind: OpPushImm, Imm: uint32(s.Vector)},
		Op{Kind: OpJumpTrampoline},
	)
}

// Execute replays s on top of the frame the CPU pushes when delivering the
// interrupt and returns the stack the trampoline sees, top of stack first:
// vector, error code, EIP, CS and EFLAGS. errorCode is only pushed by the CPU
// when s.ErrorCode is set.
func (s Stub) Execute(eflags, cs, eip, errorCode uint32) []uint32 {
	stack := []uint32{eflags, cs, eip}
	if s.ErrorCode {
		stack = append(stack, errorCode)
	}

	for _, op := range s.Ops() {
		if op.Kind == OpPushImm {
			stack = append(stack, op.Imm)
		}
	}

	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}
