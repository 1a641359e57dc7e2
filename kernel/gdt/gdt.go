// Package gdt owns the global descriptor table.
//
// The table is a statically initialized array so that it is already valid
// when the loader jumps to the kernel: Bootstrap loads it before paging is
// enabled, using physical addresses only. Once the kernel runs from its
// higher-half addresses, Init completes it with the user segments and the
// task state segment and loads it again from its virtual address.
package gdt

import "unsafe"

// Descriptor is an 8-byte segment descriptor.
type Descriptor uint64

// Access is the access byte of a segment descriptor.
type Access uint8

const (
	// AccessAccessed is set by the CPU the first time the segment is loaded.
	AccessAccessed Access = 1 << iota

	// AccessRW marks code segments readable and data segments writable.
	AccessRW

	// AccessDirection marks code segments conforming and data segments
	// expand-down.
	AccessDirection

	// AccessExecutable marks a code segment.
	AccessExecutable

	// AccessCodeOrData is clear for system descriptors such as a TSS.
	AccessCodeOrData

	_
	_

	// AccessPresent must be set for the descriptor to be usable.
	AccessPresent
)

// AccessDPL returns the access bits encoding privilege level ring.
func AccessDPL(ring uint8) Access {
	return Access(ring&3) << 5
}

// Flags is the 4-bit flag nibble of a segment descriptor.
type Flags uint8

const (
	// FlagLong marks a 64-bit code segment. It is never set on i386.
	FlagLong Flags = 1 << (iota + 1)

	// FlagSize32 selects 32-bit protected mode operands.
	FlagSize32

	// FlagGranularity4K scales the limit by 4 KiB.
	FlagGranularity4K
)

// maxLimit is the largest 20-bit limit; with FlagGranularity4K it spans 4 GiB.
const maxLimit = 0xfffff

// NewDescriptor packs a segment descriptor.
func NewDescriptor(base, limit uint32, access Access, flags Flags) Descriptor {
	return Descriptor(uint64(limit&0xffff) |
		uint64(base&0xffffff)<<16 |
		uint64(access)<<40 |
		uint64((limit>>16)&0xf)<<48 |
		uint64(flags&0xf)<<52 |
		uint64(base>>24)<<56)
}

// Base returns the 32-bit segment base.
func (d Descriptor) Base() uint32 {
	return uint32((d>>16)&0xffffff) | uint32(d>>56)<<24
}

// Limit returns the raw 20-bit segment limit.
func (d Descriptor) Limit() uint32 {
	return uint32(d&0xffff) | uint32((d>>48)&0xf)<<16
}

// Access returns the access byte.
func (d Descriptor) Access() Access {
	return Access(d >> 40)
}

// Flags returns the flag nibble.
func (d Descriptor) Flags() Flags {
	return Flags((d >> 52) & 0xf)
}

// Present reports whether the present bit is set.
func (d Descriptor) Present() bool {
	return d.Access()&AccessPresent != 0
}

// DPL returns the privilege level required to use the segment.
func (d Descriptor) DPL() uint8 {
	return uint8(d.Access()>>5) & 3
}

// Selector is a segment selector: a table index shifted left by 3 with the
// requested privilege level in the low two bits.
type Selector uint16

// Table slots.
const (
	nullIndex = iota
	kernelCodeIndex
	kernelDataIndex
	userCodeIndex
	userDataIndex
	tlsIndex
	tssIndex
	entryCount
)

// Values shared with the assembly code through go_asm.h.
const (
	kernelCodeSel  = kernelCodeIndex << 3
	kernelDataSel  = kernelDataIndex << 3
	tlsSel         = tlsIndex << 3
	tlsOffset      = tlsIndex * 8
	bootTableLimit = entryCount*8 - 1
)

// Segment selectors for every slot of the table.
const (
	KernelCodeSelector = Selector(kernelCodeSel)
	KernelDataSelector = Selector(kernelDataSel)
	UserCodeSelector   = Selector(userCodeIndex<<3 | 3)
	UserDataSelector   = Selector(userDataIndex<<3 | 3)
	TLSSelector        = Selector(tlsSel)
	TSSSelector        = Selector(tssIndex << 3)
)

// Index returns the table slot referenced by s.
func (s Selector) Index() int {
	return int(s >> 3)
}

// RPL returns the requested privilege level of s.
func (s Selector) RPL() uint8 {
	return uint8(s & 3)
}

// Flat 4 GiB ring 0 segments. These must stay constant expressions so the
// table below is emitted as initialized data instead of being built by
// package init code, which never runs in the kernel.
const (
	kernelCode = Descriptor(0x00cf9a000000ffff)
	kernelData = Descriptor(0x00cf92000000ffff)
)

var (
	// table is loaded by Bootstrap with only the null, kernel code, kernel
	// data and TLS slots populated.
	table = [entryCount]Descriptor{
		kernelCodeIndex: kernelCode,
		kernelDataIndex: kernelData,
		tlsIndex:        kernelData,
	}

	bootPointer DescriptorTablePointer
	pointer     DescriptorTablePointer
	tss         TaskState
)

// DescriptorTablePointer is the 6-byte operand of LGDT and LIDT. The base is
// split in two halves so the struct carries no padding.
type DescriptorTablePointer struct {
	Limit    uint16
	BaseLow  uint16
	BaseHigh uint16
}

// Set points p at a table starting at base whose last valid byte is at
// base+limit.
func (p *DescriptorTablePointer) Set(base uintptr, limit uint16) {
	p.Limit = limit
	p.BaseLow = uint16(base)
	p.BaseHigh = uint16(base >> 16)
}

// Base returns the table address stored in p.
func (p *DescriptorTablePointer) Base() uintptr {
	return uintptr(p.BaseLow) | uintptr(p.BaseHigh)<<16
}

// TaskState is the 32-bit task state segment. The kernel only uses it to
// tell the CPU which stack to switch to when an interrupt arrives while
// running in ring 3.
type TaskState struct {
	PrevTask uint16
	_        uint16
	ESP0     uint32
	SS0      uint16
	_        uint16
	ESP1     uint32
	SS1      uint16
	_        uint16
	ESP2     uint32
	SS2      uint16
	_        uint16

	CR3    uint32
	EIP    uint32
	EFlags uint32
	EAX    uint32
	ECX    uint32
	EDX    uint32
	EBX    uint32
	ESP    uint32
	EBP    uint32
	ESI    uint32
	EDI    uint32

	ES  uint16
	_   uint16
	CS  uint16
	_   uint16
	SS  uint16
	_   uint16
	DS  uint16
	_   uint16
	FS  uint16
	_   uint16
	GS  uint16
	_   uint16
	LDT uint16
	_   uint16

	Trap      uint16
	IOMapBase uint16
}

// Entry returns the descriptor stored at slot index of the active table.
func Entry(index int) Descriptor {
	return table[index]
}

func tableAddress() uintptr {
	return uintptr(unsafe.Pointer(&table[0]))
}
