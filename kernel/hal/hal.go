// Package hal wires the display drivers to the kernel output.
package hal

import (
	"github.com/Harthann/Yak/device/tty"
	"github.com/Harthann/Yak/device/video/console"
	"github.com/Harthann/Yak/kernel"
	"github.com/Harthann/Yak/kernel/kfmt"
	"github.com/Harthann/Yak/kernel/mm/vmm"
	"github.com/Harthann/Yak/multiboot"
)

var (
	egaConsole     console.Ega
	activeTerminal tty.Vt

	getFramebufferInfoFn = multiboot.GetFramebufferInfo

	// fbVirtAddrFn returns the address the framebuffer is visible at once
	// the kernel runs in the higher half.
	fbVirtAddrFn = func(physAddr uintptr) uintptr { return physAddr + vmm.KernelHighOffset }

	errUnsupportedFramebuffer = &kernel.Error{Module: "hal", Message: "framebuffer is not in EGA text mode"}
	errFramebufferNotMapped   = &kernel.Error{Module: "hal", Message: "framebuffer lies outside the boot mapping"}
)

// ActiveTerminal returns the terminal receiving kernel output.
func ActiveTerminal() *tty.Vt {
	return &activeTerminal
}

// InitTerminal attaches a terminal to the text framebuffer reported by the
// boot loader and redirects kfmt output to it. Loaders that report no
// framebuffer leave the BIOS text mode active so the standard 80x25 buffer
// at 0xb8000 is used.
//
// On error the output stays in the kfmt ring buffer.
func InitTerminal() *kernel.Error {
	width, height := uint32(console.DefaultEgaWidth), uint32(console.DefaultEgaHeight)
	physAddr := console.DefaultEgaPhysAddr

	if fbInfo := getFramebufferInfoFn(); fbInfo != nil {
		if fbInfo.Type != multiboot.FramebufferTypeEGA {
			return errUnsupportedFramebuffer
		}
		width, height, physAddr = fbInfo.Width, fbInfo.Height, uintptr(fbInfo.PhysAddr)
	}

	// The boot page table only covers the first TableSpan bytes of RAM.
	if fbEnd := uint64(physAddr) + uint64(width)*uint64(height)*2; fbEnd > uint64(vmm.TableSpan) {
		return errFramebufferNotMapped
	}

	egaConsole.Init(width, height, fbVirtAddrFn(physAddr))
	activeTerminal.AttachTo(&egaConsole)
	activeTerminal.Clear()
	kfmt.SetOutputSink(&activeTerminal)
	return nil
}
