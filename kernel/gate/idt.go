package gate

import (
	"unsafe"

	"github.com/Harthann/Yak/kernel/gate/stubgen"
	"github.com/Harthann/Yak/kernel/gdt"
	"github.com/Harthann/Yak/kernel/sync"
)

// Descriptor is an 8-byte 32-bit interrupt gate.
type Descriptor uint64

// Gate type/attribute bytes.
const (
	// KernelGate is a present ring 0 32-bit interrupt gate.
	KernelGate = stubgen.KernelGateAttributes

	// UserGate is a present 32-bit interrupt gate that ring 3 code may
	// invoke with INT.
	UserGate = stubgen.UserGateAttributes

	attrPresent = uint8(0x80)
)

// NewDescriptor packs a gate entering handler through selector sel.
func NewDescriptor(handler uintptr, sel gdt.Selector, attr uint8) Descriptor {
	return Descriptor(uint64(handler&0xffff) |
		uint64(sel)<<16 |
		uint64(attr)<<40 |
		uint64((handler>>16)&0xffff)<<48)
}

// Offset returns the handler address.
func (d Descriptor) Offset() uintptr {
	return uintptr(d&0xffff) | uintptr((d>>48)&0xffff)<<16
}

// Selector returns the code segment selector used to run the handler.
func (d Descriptor) Selector() gdt.Selector {
	return gdt.Selector(d >> 16)
}

// Attributes returns the type/attribute byte.
func (d Descriptor) Attributes() uint8 {
	return uint8(d >> 40)
}

// Present reports whether the gate is usable.
func (d Descriptor) Present() bool {
	return d.Attributes()&attrPresent != 0
}

// DPL returns the lowest privilege level allowed to invoke the gate with INT.
func (d Descriptor) DPL() uint8 {
	return (d.Attributes() >> 5) & 3
}

var (
	idt        [stubgen.VectorCount]Descriptor
	idtPointer gdt.DescriptorTablePointer

	// idtLock serializes writers of idt and of the handler table. Readers
	// (the CPU and dispatch) never take it.
	idtLock sync.Spinlock
)

// Init fills every IDT slot with a gate to its stub and loads the table. All
// gates use the kernel code segment; only the syscall gate may be invoked
// from ring 3. It must run with interrupts disabled.
func Init() {
	idtLock.Acquire()
	for v := 0; v < stubgen.VectorCount; v++ {
		idt[v] = NewDescriptor(stubAddressFn(uint8(v)), gdt.KernelCodeSelector, stubgen.GateAttributes(uint8(v)))
	}
	idtLock.Release()

	idtPointer.Set(uintptr(unsafe.Pointer(&idt[0])), uint16(len(idt)*8-1))
	loadIDTFn(&idtPointer)
}

// SetGateAttributes rewrites the attributes of the gate for n. The handler
// address and selector stay the same.
func SetGateAttributes(n InterruptNumber, attr uint8) {
	idtLock.Acquire()
	d := idt[n]
	idt[n] = NewDescriptor(d.Offset(), d.Selector(), attr)
	idtLock.Release()
}

// Gate returns the IDT entry for n.
func Gate(n InterruptNumber) Descriptor {
	return idt[n]
}
