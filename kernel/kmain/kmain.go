// Package kmain sequences the boot of the kernel once the entry code has
// switched to the higher half.
package kmain

import (
	"github.com/Harthann/Yak/kernel"
	"github.com/Harthann/Yak/kernel/cpu"
	"github.com/Harthann/Yak/kernel/gate"
	"github.com/Harthann/Yak/kernel/gdt"
	"github.com/Harthann/Yak/kernel/hal"
	"github.com/Harthann/Yak/kernel/irq"
	"github.com/Harthann/Yak/kernel/kfmt"
	"github.com/Harthann/Yak/kernel/mm/vmm"
	"github.com/Harthann/Yak/multiboot"
)

// Stage identifies a step of the boot sequence. Stages run exactly once and
// in declaration order.
type Stage uint8

const (
	// StagePending is the state before Kmain runs.
	StagePending Stage = iota

	// StageRelocated confirms that paging is on and the kernel image is
	// reachable through its higher-half addresses.
	StageRelocated

	// StageSegments reloads the GDT from its virtual address and loads the
	// task register.
	StageSegments

	// StageVectors loads the IDT and installs the default exception
	// handlers.
	StageVectors

	// StageInterrupts programs the interrupt controllers.
	StageInterrupts

	// StageRunning enables interrupts.
	StageRunning

	stageCount
)

var stageNames = [stageCount]string{
	"pending",
	"relocation check",
	"segments",
	"interrupt vectors",
	"interrupt controllers",
	"running",
}

// String returns the name of the stage.
func (s Stage) String() string {
	if s >= stageCount {
		return "unknown"
	}
	return stageNames[s]
}

// timerLine is the line of the programmable interval timer.
const timerLine = irq.Line(0)

// bootParams holds the values handed over by the entry code.
type bootParams struct {
	kernelStart uintptr
	kernelEnd   uintptr
	kernelStack uintptr
}

var (
	stage Stage
	boot  bootParams

	// ticks counts timer interrupts.
	ticks uint32

	// The following functions are overridden by tests.
	panicFn            = kfmt.Panic
	idleFn             = idle
	bootInfoAddrFn     = bootInfoAddr
	initTerminalFn     = hal.InitTerminal
	pagingEnabledFn    = vmm.PagingEnabled
	activeDirectoryFn  = vmm.ActiveDirectory
	checkRelocationFn  = vmm.CheckRelocation
	gdtInitFn          = gdt.Init
	gateInitFn         = gate.Init
	installHandlersFn  = gate.InstallDefaultHandlers
	irqInitFn          = irq.Init
	handleIRQFn        = irq.HandleIRQ
	enableInterruptsFn = cpu.EnableInterrupts

	gdtLog  = kfmt.PrefixWriter{Prefix: []byte("[gdt] ")}
	mmapLog = kfmt.PrefixWriter{Prefix: []byte("[mmap] ")}
	vmmLog  = kfmt.PrefixWriter{Prefix: []byte("[vmm] ")}

	errKmainReturned      = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errAlreadyBooted      = &kernel.Error{Module: "kmain", Message: "Kmain invoked more than once"}
	errStageOrder         = &kernel.Error{Module: "kmain", Message: "boot stage entered out of order"}
	errBadBootloaderMagic = &kernel.Error{Module: "kmain", Message: "not loaded by a multiboot2 compliant boot loader"}
	errPagingDisabled     = &kernel.Error{Module: "kmain", Message: "paging is not enabled"}
	errInfoNotMapped      = &kernel.Error{Module: "kmain", Message: "multiboot information lies outside the boot mapping"}
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. The rt0 code invokes it after loading the boot GDT,
// enabling paging and jumping to the higher half, with a minimal g0 struct
// in place so that Go code can use the stack allocated by the assembly code.
//
// rt0 passes the value of EAX and the physical address of the multiboot
// information payload as set by the boot loader, the physical addresses of
// the kernel image start/end and the top of the boot stack.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(magic, multibootInfoPtr, kernelStart, kernelEnd, kernelStack uintptr) {
	if stage != StagePending {
		panicFn(errAlreadyBooted)
		return
	}

	if uint32(magic) != multiboot.BootloaderMagic {
		panicFn(errBadBootloaderMagic)
		return
	}

	infoAddr, err := bootInfoAddrFn(multibootInfoPtr)
	if err != nil {
		panicFn(err)
		return
	}
	multiboot.SetInfoPtr(infoAddr)

	if err := initTerminalFn(); err != nil {
		kfmt.Printf("[%s] %s; output is kept in the early buffer\n", err.Module, err.Message)
	}
	if name := multiboot.BootLoaderName(); name != "" {
		kfmt.Printf("[kmain] loaded by %s\n", name)
	}

	boot = bootParams{kernelStart: kernelStart, kernelEnd: kernelEnd, kernelStack: kernelStack}
	for next := StageRelocated; next < stageCount; next++ {
		if err := enterStage(next); err != nil {
			panicFn(err)
			return
		}
	}

	if value, _ := multiboot.BootCmdLineValue("bootlog"); value == "verbose" {
		dumpBootState()
	}

	idleFn()

	// Use panicFn instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// bootInfoAddr returns the higher-half address of the multiboot information
// stored at physAddr. Only the first TableSpan bytes of RAM are mapped while
// the kernel boots.
func bootInfoAddr(physAddr uintptr) (uintptr, *kernel.Error) {
	if physAddr == 0 || physAddr >= vmm.TableSpan {
		return 0, errInfoNotMapped
	}
	return physAddr + vmm.KernelHighOffset, nil
}

// CurrentStage returns the last completed boot stage.
func CurrentStage() Stage {
	return stage
}

// Ticks returns the number of timer interrupts serviced so far.
func Ticks() uint32 {
	return ticks
}

// enterStage runs next if it directly follows the last completed stage.
func enterStage(next Stage) *kernel.Error {
	if next == StagePending || next >= stageCount || next != stage+1 {
		return errStageOrder
	}

	var err *kernel.Error
	switch next {
	case StageRelocated:
		if !pagingEnabledFn() {
			return errPagingDisabled
		}
		err = checkRelocationFn(activeDirectoryFn(), vmm.KernelResolver, boot.kernelStart, boot.kernelEnd, vmm.KernelHighOffset)
	case StageSegments:
		gdtInitFn(boot.kernelStack)
	case StageVectors:
		gateInitFn()
		installHandlersFn()
	case StageInterrupts:
		irqInitFn()
		handleIRQFn(timerLine, timerTick)
	case StageRunning:
		enableInterruptsFn()
	}

	if err != nil {
		return err
	}

	stage = next
	kfmt.Printf("[kmain] %s: ok\n", next.String())
	return nil
}

func timerTick(_ *gate.Registers) {
	ticks++
}

// dumpBootState logs the descriptor table, the memory map and the page
// directory slots in use.
func dumpBootState() {
	sink := kfmt.GetOutputSink()

	gdtLog.Sink = sink
	gdt.Dump(&gdtLog)

	mmapLog.Sink = sink
	multiboot.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		kfmt.Fprintf(&mmapLog, "[0x%10x - 0x%10x] %s\n", entry.PhysAddress, entry.PhysAddress+entry.Length-1, entry.Type.String())
		return true
	})

	vmmLog.Sink = sink
	dir := activeDirectoryFn()
	for slot := 0; slot < vmm.EntriesPerTable; slot++ {
		if entry := dir.Entry(slot); entry&uint32(vmm.FlagPresent) != 0 {
			kfmt.Fprintf(&vmmLog, "pd[%d] 0x%8x -> table 0x%8x\n", slot, uint32(slot)<<22, entry&^uint32(0xfff))
		}
	}

	kfmt.Printf("[gate] syscall gate 0x%2x attributes 0x%2x\n", uint8(gate.Syscall), gate.Gate(gate.Syscall).Attributes())
}

// idle waits for interrupts forever.
func idle() {
	for {
		cpu.WaitForInterrupt()
	}
}
