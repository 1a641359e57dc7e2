// Package kernel holds the types shared by every package of the boot core.
package kernel

// Error is the error type returned by kernel code paths. There is no Go
// allocator while the kernel boots, so every Error must be declared as a
// package-level pointer instead of being built with errors.New.
type Error struct {
	// Module names the subsystem that raised the error.
	Module string

	// Message is a short human readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
