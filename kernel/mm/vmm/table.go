package vmm

import (
	"unsafe"

	"github.com/Harthann/Yak/kernel/mm"
)

// PageTable maps TableSpan bytes of virtual memory in 4 KiB pages.
type PageTable [EntriesPerTable]pageTableEntry

// PageDirectory is the root of the two-level i386 translation structure.
// Each entry points to a PageTable.
type PageDirectory [EntriesPerTable]pageTableEntry

// DirectoryIndex returns the directory slot used to translate virtAddr.
//
//go:nosplit
func DirectoryIndex(virtAddr uintptr) int {
	return int(virtAddr>>tableShift) & (EntriesPerTable - 1)
}

// TableIndex returns the page table slot used to translate virtAddr.
func TableIndex(virtAddr uintptr) int {
	return int(virtAddr>>mm.PageShift) & (EntriesPerTable - 1)
}

// Fill maps the EntriesPerTable consecutive frames starting at physBase,
// marking each entry present and writable. physBase is rounded down to a page
// boundary.
//
//go:nosplit
func (t *PageTable) Fill(physBase uintptr) {
	frame := uint32(physBase) & pteFrameMask
	for i := range t {
		t[i] = pageTableEntry(frame | uint32(FlagPresent|FlagRW))
		frame += uint32(mm.PageSize)
	}
}

// Entry returns the raw value of slot index.
func (t *PageTable) Entry(index int) uint32 {
	return uint32(t[index])
}

// Clear marks every slot of the directory not present. It runs before paging
// is enabled, so the loop must not be lowered to a memclr call: memclr reads
// CPU feature flags through their virtual addresses.
//
//go:nosplit
func (d *PageDirectory) Clear() {
	for i := 0; i < len(d); i++ {
		d[i] = 0
	}
}

// MapTable installs the page table at physical address tablePhys in the slot
// that translates virtAddr. The entry is present and writable.
//
//go:nosplit
func (d *PageDirectory) MapTable(virtAddr, tablePhys uintptr) {
	d[DirectoryIndex(virtAddr)] = pageTableEntry(uint32(tablePhys)&pteFrameMask | uint32(FlagPresent|FlagRW))
}

// Entry returns the raw value of slot index.
func (d *PageDirectory) Entry(index int) uint32 {
	return uint32(d[index])
}

// TableResolver returns a usable pointer to the page table stored at physical
// address phys, or nil if it cannot be reached.
type TableResolver func(phys uintptr) *PageTable

// IdentityResolver resolves tables while physical memory is accessed at its
// own address.
func IdentityResolver(phys uintptr) *PageTable {
	return (*PageTable)(unsafe.Pointer(phys))
}
