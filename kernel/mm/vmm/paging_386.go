package vmm

import (
	"unsafe"

	"github.com/Harthann/Yak/kernel/cpu"
)

var (
	// The following functions are overridden by tests.
	activePDTFn = cpu.ActivePDT
	readCR0Fn   = cpu.ReadCR0
)

// EnablePaging loads dirPhys into CR3 and then sets the paging and
// write-protect bits of CR0. The caller must be executing from memory that
// the directory identity maps.
func EnablePaging(dirPhys uintptr)

// PagingEnabled reports whether CR0 has the paging bit set.
func PagingEnabled() bool {
	return readCR0Fn()&CR0Paging != 0
}

// ActiveDirectory returns the page directory loaded in CR3, accessed through
// the higher-half mapping.
func ActiveDirectory() *PageDirectory {
	return (*PageDirectory)(unsafe.Pointer(activePDTFn() + KernelHighOffset))
}

// KernelResolver resolves page tables through the higher-half mapping.
func KernelResolver(phys uintptr) *PageTable {
	return (*PageTable)(unsafe.Pointer(phys + KernelHighOffset))
}
