package vmm

import "github.com/Harthann/Yak/kernel/mm"

// PageTableEntryFlag is a flag bit shared by page directory and page table
// entries.
type PageTableEntryFlag uint32

const (
	// FlagPresent is set when the entry maps memory.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW allows writes.
	FlagRW

	// FlagUserAccessible allows ring 3 access.
	FlagUserAccessible

	// FlagWriteThroughCaching selects write-through instead of write-back
	// caching.
	FlagWriteThroughCaching

	// FlagDoNotCache disables caching.
	FlagDoNotCache

	// FlagAccessed is set by the CPU on access.
	FlagAccessed

	// FlagDirty is set by the CPU on write. Only meaningful in page tables.
	FlagDirty

	// FlagHugePage marks a directory entry mapping a 4 MiB page directly.
	FlagHugePage

	// FlagGlobal keeps the TLB entry across CR3 reloads.
	FlagGlobal
)

type pageTableEntry uint32

// HasFlags reports whether all of flags are set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return uint32(pte)&uint32(flags) == uint32(flags)
}

// HasAnyFlag reports whether at least one of flags is set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return uint32(pte)&uint32(flags) != 0
}

func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = pageTableEntry(uint32(*pte) | uint32(flags))
}

func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = pageTableEntry(uint32(*pte) &^ uint32(flags))
}

// Frame returns the physical frame the entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.FrameFromAddress(uintptr(uint32(pte) & pteFrameMask))
}

// SetFrame points the entry at frame, keeping its flags.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = pageTableEntry(uint32(*pte)&^pteFrameMask | uint32(frame.Address())&pteFrameMask)
}
