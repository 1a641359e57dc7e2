package gate

import "github.com/Harthann/Yak/kernel/gdt"

//go:generate go run github.com/Harthann/Yak/tools/kbootctl genvectors -o vectors_386.s -go vectors_386.go

// kernelDataSel is loaded into DS, ES and FS by the trampoline.
const kernelDataSel = uint32(gdt.KernelDataSelector)

var (
	// The following functions are overridden by tests.
	loadIDTFn     = loadIDT
	stubAddressFn = stubAddress
)

// loadIDT loads the table described by ptr into the IDT register.
func loadIDT(ptr *gdt.DescriptorTablePointer)

// stubAddress returns the entry point of the generated stub for vector.
func stubAddress(vector uint8) uintptr

// trampoline is the common tail of every stub. It is never called from Go.
func trampoline()
