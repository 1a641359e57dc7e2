package gate

import (
	"github.com/Harthann/Yak/kernel"
	"github.com/Harthann/Yak/kernel/cpu"
	"github.com/Harthann/Yak/kernel/gate/stubgen"
	"github.com/Harthann/Yak/kernel/kfmt"
)

// InterruptHandler services one interrupt. It runs with interrupts disabled
// and may modify regs to change the state the interrupted code resumes with.
type InterruptHandler func(regs *Registers)

// enosys is -ENOSYS as seen in EAX.
const enosys = uint32(0xffffffda)

var (
	handlers [stubgen.VectorCount]InterruptHandler

	// The following functions are overridden by tests.
	panicFn   = kfmt.Panic
	readCR2Fn = cpu.ReadCR2

	errUnhandledInterrupt = &kernel.Error{Module: "gate", Message: "unhandled interrupt"}
	errPageFault          = &kernel.Error{Module: "gate", Message: "page fault"}
)

// HandleInterrupt registers handler for n, replacing the previous one. A nil
// handler makes n unhandled again.
func HandleInterrupt(n InterruptNumber, handler InterruptHandler) {
	idtLock.Acquire()
	handlers[n] = handler
	idtLock.Release()
}

// dispatch is invoked by the trampoline with a pointer to the frame it built
// on the interrupted stack.
func dispatch(regs *Registers) {
	if handler := handlers[uint8(regs.Vector)]; handler != nil {
		handler(regs)
		return
	}

	unhandled(regs)
}

// unhandled reports an interrupt without a handler and halts.
func unhandled(regs *Registers) {
	n := InterruptNumber(regs.Vector)
	kfmt.Printf("\nunhandled interrupt %d (%s), error code 0x%x\n", uint8(n), n.String(), regs.ErrorCode)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn(errUnhandledInterrupt)
}

// InstallDefaultHandlers registers the kernel's baseline policy. Debug and
// breakpoint exceptions are logged and execution resumes. Page faults report
// the faulting address and halt. The syscall gate fails every request with
// ENOSYS until a syscall table is attached. Every other vector stays
// unhandled and halts through dispatch.
func InstallDefaultHandlers() {
	HandleInterrupt(Debug, traceException)
	HandleInterrupt(Breakpoint, traceException)
	HandleInterrupt(PageFaultException, pageFault)
	HandleInterrupt(Syscall, noSyscall)
}

func traceException(regs *Registers) {
	kfmt.Printf("[gate] %s at 0x%8x\n", InterruptNumber(regs.Vector).String(), regs.EIP)
}

func noSyscall(regs *Registers) {
	regs.EAX = enosys
}

// Page fault error code bits.
const (
	pfProtection = 1 << 0
	pfWrite      = 1 << 1
	pfUser       = 1 << 2
)

func pageFault(regs *Registers) {
	var (
		cause  = "non-present page"
		access = "read"
		mode   = "kernel"
	)

	if regs.ErrorCode&pfProtection != 0 {
		cause = "protection violation"
	}
	if regs.ErrorCode&pfWrite != 0 {
		access = "write"
	}
	if regs.ErrorCode&pfUser != 0 {
		mode = "user"
	}

	kfmt.Printf("\npage fault: %s %s of 0x%8x (%s)\n", mode, access, readCR2Fn(), cause)
	regs.DumpTo(kfmt.GetOutputSink())
	panicFn(errPageFault)
}
