package gdt

import "unsafe"

var (
	// The following functions are overridden by tests.
	loadGDTFn          = loadGDT
	reloadSegmentsFn   = reloadSegments
	loadTaskRegisterFn = loadTaskRegister
)

// Bootstrap loads the static table and reloads every segment register,
// including CS through a far return. It runs before paging is enabled while
// the kernel executes from its physical load address, so it only touches
// memory at symbol address minus offset. tlsBase is patched into the TLS
// descriptor so that GS-relative accesses made by Go code resolve once the
// kernel runs from its higher-half addresses.
func Bootstrap(offset, tlsBase uintptr)

// Init adds the ring 3 segments and a task state segment whose ring 0 stack
// is kernelStack, then reloads the table from its virtual address. The
// kernel must already be running from its higher-half mapping.
func Init(kernelStack uintptr) {
	table[userCodeIndex] = NewDescriptor(0, maxLimit,
		AccessPresent|AccessDPL(3)|AccessCodeOrData|AccessExecutable|AccessRW,
		FlagSize32|FlagGranularity4K,
	)
	table[userDataIndex] = NewDescriptor(0, maxLimit,
		AccessPresent|AccessDPL(3)|AccessCodeOrData|AccessRW,
		FlagSize32|FlagGranularity4K,
	)

	tss.SS0 = uint16(KernelDataSelector)
	tss.ESP0 = uint32(kernelStack)
	tss.IOMapBase = uint16(unsafe.Sizeof(tss))

	// An available 32-bit TSS is a system descriptor of type 0x9.
	table[tssIndex] = NewDescriptor(
		uint32(uintptr(unsafe.Pointer(&tss))),
		uint32(unsafe.Sizeof(tss)-1),
		AccessPresent|AccessExecutable|AccessAccessed,
		0,
	)

	pointer.Set(tableAddress(), bootTableLimit)
	loadGDTFn(&pointer)
	reloadSegmentsFn(KernelCodeSelector, KernelDataSelector, TLSSelector)
	loadTaskRegisterFn(TSSSelector)
}

// SetKernelStack updates the stack the CPU switches to when an interrupt
// arrives in ring 3.
func SetKernelStack(esp0 uintptr) {
	tss.ESP0 = uint32(esp0)
}

func loadGDT(ptr *DescriptorTablePointer)
func reloadSegments(code, data, tls Selector)
func loadTaskRegister(sel Selector)

// flushCS is the far return target used to reload CS.
func flushCS()
