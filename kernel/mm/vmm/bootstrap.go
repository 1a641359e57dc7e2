package vmm

import (
	"unsafe"

	"github.com/Harthann/Yak/kernel/mm"
)

// bootPageMemory holds the boot page directory and its single page table. An
// extra page leaves room to align both to a page boundary.
var bootPageMemory [3 * mm.PageSize]byte

// BootstrapMap builds the boot address space: the EntriesPerTable frames
// starting at physBase become reachable both at their physical address and at
// physical address + offset. Both directory slots point at the same table,
// whose physical address is tablePhys.
//
//go:nosplit
func BootstrapMap(dir *PageDirectory, table *PageTable, tablePhys, physBase, offset uintptr) {
	dir.Clear()
	table.Fill(physBase)
	dir.MapTable(physBase, tablePhys)
	dir.MapTable(physBase+offset, tablePhys)
}

// Bootstrap builds the boot address space in bootPageMemory and returns the
// physical address of its page directory, ready to be handed to
// EnablePaging. It runs with paging disabled and the kernel executing from
// its physical load address, so it reaches bootPageMemory through its
// physical address (link address minus offset) and stores nothing in other
// package variables.
//
//go:nosplit
func Bootstrap(physBase, offset uintptr) uintptr {
	phys := mm.AlignUp(uintptr(unsafe.Pointer(&bootPageMemory[0])) - offset)

	BootstrapMap(
		(*PageDirectory)(unsafe.Pointer(phys)),
		(*PageTable)(unsafe.Pointer(phys+mm.PageSize)),
		phys+mm.PageSize,
		physBase,
		offset,
	)

	return phys
}
