package vmm

import "github.com/Harthann/Yak/kernel/mm"

const (
	// KernelHighOffset is the distance between the virtual address the
	// kernel is linked at and the physical address it is loaded at.
	KernelHighOffset = uintptr(0xc0000000)

	// EntriesPerTable is the number of entries in a page directory and in
	// a page table.
	EntriesPerTable = 1024

	// tableShift is log2(TableSpan).
	tableShift = 22

	// TableSpan is the amount of memory mapped by a single page table.
	TableSpan = uintptr(EntriesPerTable) * mm.PageSize

	// pteFrameMask selects the physical frame address of an entry.
	pteFrameMask = uint32(0xfffff000)
)

// CR0 bits set by EnablePaging.
const (
	CR0WriteProtect = uint32(1 << 16)
	CR0Paging       = uint32(1 << 31)

	// cr0Flags is CR0WriteProtect|CR0Paging in a form go_asm.h exports.
	cr0Flags = 0x80010000
)
