package vmm

import (
	"github.com/Harthann/Yak/kernel"
	"github.com/Harthann/Yak/kernel/mm"
)

var (
	// ErrInvalidMapping is returned when translating an unmapped address.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrRelocationMismatch is returned when the higher-half view of the
	// kernel does not reach the same frames as the identity view.
	ErrRelocationMismatch = &kernel.Error{Module: "vmm", Message: "higher-half mapping does not match the identity mapping"}
)

// Translate walks dir and returns the physical address virtAddr maps to.
func Translate(dir *PageDirectory, resolve TableResolver, virtAddr uintptr) (uintptr, *kernel.Error) {
	pde := dir[DirectoryIndex(virtAddr)]
	if !pde.HasFlags(FlagPresent) {
		return 0, ErrInvalidMapping
	}

	if pde.HasFlags(FlagHugePage) {
		return uintptr(uint32(pde))&^(TableSpan-1) | virtAddr&(TableSpan-1), nil
	}

	table := resolve(pde.Frame().Address())
	if table == nil {
		return 0, ErrInvalidMapping
	}

	pte := table[TableIndex(virtAddr)]
	if !pte.HasFlags(FlagPresent) {
		return 0, ErrInvalidMapping
	}

	return pte.Frame().Address() | virtAddr&(mm.PageSize-1), nil
}

// CheckRelocation verifies that every page in [physStart, physEnd) is
// reachable at its physical address and at physical address + offset and that
// both views reach the same frame.
func CheckRelocation(dir *PageDirectory, resolve TableResolver, physStart, physEnd, offset uintptr) *kernel.Error {
	for addr := mm.AlignDown(physStart); addr < physEnd; addr += mm.PageSize {
		low, err := Translate(dir, resolve, addr)
		if err != nil {
			return err
		}

		high, err := Translate(dir, resolve, addr+offset)
		if err != nil {
			return err
		}

		if low != addr || high != addr {
			return ErrRelocationMismatch
		}
	}

	return nil
}
