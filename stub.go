package main

import "github.com/Harthann/Yak/kernel/kmain"

var multibootInfoPtr uintptr

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// A global variable is passed as an argument to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated .o file.
// The call to rt0Entry keeps the assembly entry point, and everything it
// calls, in the image.
func main() {
	kmain.Kmain(0, multibootInfoPtr, 0, 0, 0)
	rt0Entry()
}

// rt0Entry is the entry point of the kernel image. The boot loader jumps to it
// with paging disabled; see rt0_386.s.
func rt0Entry()

// rt0High continues the boot from the higher-half mapping.
func rt0High()
