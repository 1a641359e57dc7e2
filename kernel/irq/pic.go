// Package irq drives the pair of cascaded 8259 programmable interrupt
// controllers and routes hardware interrupt lines to Go handlers.
package irq

import (
	"github.com/Harthann/Yak/kernel/cpu"
	"github.com/Harthann/Yak/kernel/gate"
	"github.com/Harthann/Yak/kernel/gate/stubgen"
)

// Line numbers a hardware interrupt line; 0-7 belong to the master
// controller and 8-15 to the slave.
type Line uint8

const (
	// LineCount is the number of lines served by both controllers.
	LineCount = stubgen.IRQCount

	// CascadeLine connects the slave controller to the master.
	CascadeLine = Line(2)

	// MasterVectorBase and SlaveVectorBase move the lines away from the
	// CPU exception vectors.
	MasterVectorBase = uint8(stubgen.IRQBase)
	SlaveVectorBase  = MasterVectorBase + 8
)

const (
	masterCommand = uint16(0x20)
	masterData    = uint16(0x21)
	slaveCommand  = uint16(0xa0)
	slaveData     = uint16(0xa1)

	icw1Init = uint8(0x10)
	icw1ICW4 = uint8(0x01)

	// icw3 tells the master which line the slave is wired to and the slave
	// its cascade identity.
	icw3Master = uint8(1 << CascadeLine)
	icw3Slave  = uint8(CascadeLine)

	icw4Mode8086 = uint8(0x01)

	cmdEndOfInterrupt = uint8(0x20)
)

var (
	// The following functions are overridden by tests.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte
	ioWaitFn        = cpu.IOWait

	vectorBase = MasterVectorBase

	lineHandlers [LineCount]gate.InterruptHandler
)

// Remap runs the 8259 initialization sequence so the master delivers its
// lines at masterBase and the slave at slaveBase. Both bases must be
// multiples of 8. The interrupt masks in place before the call are restored.
func Remap(masterBase, slaveBase uint8) {
	masterMask := portReadByteFn(masterData)
	slaveMask := portReadByteFn(slaveData)

	sequence := [...]struct {
		port uint16
		val  uint8
	}{
		{masterCommand, icw1Init | icw1ICW4},
		{slaveCommand, icw1Init | icw1ICW4},
		{masterData, masterBase},
		{slaveData, slaveBase},
		{masterData, icw3Master},
		{slaveData, icw3Slave},
		{masterData, icw4Mode8086},
		{slaveData, icw4Mode8086},
	}

	for _, step := range sequence {
		portWriteByteFn(step.port, step.val)
		ioWaitFn()
	}

	portWriteByteFn(masterData, masterMask)
	portWriteByteFn(slaveData, slaveMask)
	vectorBase = masterBase
}

// Init remaps the controllers to MasterVectorBase/SlaveVectorBase and masks
// every line except the cascade. Lines are unmasked by HandleIRQ.
func Init() {
	Remap(MasterVectorBase, SlaveVectorBase)
	portWriteByteFn(masterData, ^icw3Master)
	portWriteByteFn(slaveData, 0xff)
}

func dataPort(line Line) (uint16, uint8) {
	if line < 8 {
		return masterData, uint8(line)
	}
	return slaveData, uint8(line - 8)
}

// Mask stops the controller from delivering line.
func Mask(line Line) {
	port, bit := dataPort(line)
	portWriteByteFn(port, portReadByteFn(port)|1<<bit)
}

// Unmask lets the controller deliver line.
func Unmask(line Line) {
	port, bit := dataPort(line)
	portWriteByteFn(port, portReadByteFn(port)&^(1<<bit))
}

// EndOfInterrupt acknowledges line. Lines served by the slave must be
// acknowledged on both controllers.
func EndOfInterrupt(line Line) {
	if line >= 8 {
		portWriteByteFn(slaveCommand, cmdEndOfInterrupt)
	}
	portWriteByteFn(masterCommand, cmdEndOfInterrupt)
}

// Vector returns the interrupt vector line is delivered at.
func Vector(line Line) gate.InterruptNumber {
	return gate.InterruptNumber(vectorBase + uint8(line))
}

// HandleIRQ installs handler for line and unmasks it. The handler runs with
// interrupts disabled and the line is acknowledged once it returns.
func HandleIRQ(line Line, handler gate.InterruptHandler) {
	lineHandlers[line] = handler
	gate.HandleInterrupt(Vector(line), dispatchIRQ)
	Unmask(line)
}

// dispatchIRQ is the gate handler shared by every hardware line.
func dispatchIRQ(regs *gate.Registers) {
	line := Line(uint8(regs.Vector) - vectorBase)
	if line < LineCount && lineHandlers[line] != nil {
		lineHandlers[line](regs)
	}
	EndOfInterrupt(line)
}
