// Package mm defines the page and frame units shared by the memory code.
package mm

const (
	// PageShift is log2(PageSize).
	PageShift = 12

	// PageSize is the size of a page and of a physical frame.
	PageSize = uintptr(1 << PageShift)
)

// Frame is the index of a physical page frame.
type Frame uintptr

// InvalidFrame marks the absence of a frame.
const InvalidFrame = Frame(^uintptr(0))

// Valid reports whether f refers to a frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address where f starts.
func (f Frame) Address() uintptr {
	return uintptr(f) << PageShift
}

// FrameFromAddress returns the frame containing physAddr.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> PageShift)
}

// Page is the index of a virtual page.
type Page uintptr

// Address returns the virtual address where p starts.
func (p Page) Address() uintptr {
	return uintptr(p) << PageShift
}

// PageFromAddress returns the page containing virtAddr.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(virtAddr >> PageShift)
}

// AlignUp rounds addr up to the next page boundary.
//
//go:nosplit
func AlignUp(addr uintptr) uintptr {
	return (addr + PageSize - 1) &^ (PageSize - 1)
}

// AlignDown rounds addr down to the page boundary containing it.
func AlignDown(addr uintptr) uintptr {
	return addr &^ (PageSize - 1)
}
