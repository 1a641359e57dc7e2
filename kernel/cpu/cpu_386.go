// Package cpu exposes the privileged i386 instructions used by the boot core.
package cpu

// EnableInterrupts sets the interrupt flag so the CPU starts servicing
// maskable interrupts.
func EnableInterrupts()

// DisableInterrupts clears the interrupt flag.
func DisableInterrupts()

// Halt disables interrupts and stops the CPU. It never returns.
func Halt()

// WaitForInterrupt halts the CPU until the next interrupt arrives. Interrupts
// must be enabled or the CPU sleeps forever.
func WaitForInterrupt()

// ActivePDT returns the physical address of the page directory loaded in CR3.
func ActivePDT() uintptr

// ReadCR0 returns the contents of the CR0 control register.
func ReadCR0() uint32

// ReadCR2 returns the linear address that caused the last page fault.
func ReadCR2() uint32

// PortWriteByte writes a byte to an I/O port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a byte from an I/O port.
func PortReadByte(port uint16) uint8

// IOWait burns a few cycles by writing to the unused POST port. Legacy
// devices such as the 8259 PIC need it between consecutive commands.
func IOWait()
