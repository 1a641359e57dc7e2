package stubgen

import (
	"bufio"
	"io"
	"strconv"
)

// Symbols referenced by the generated assembly. They are defined by the gate
// package.
const (
	trampolineSymbol = "·trampoline(SB)"
	stubTableSymbol  = "·stubTable"
	stubPackage      = "gate"
)

const generatedHeader = "// Code generated by kbootctl genvectors. DO NOT EDIT.\n\n"

// Symbol returns the assembly symbol name of s.
func (s Stub) Symbol() string {
	return "·vector" + strconv.Itoa(int(s.Vector))
}

// Render writes the Go assembly source defining every stub plus the
// stubTable array holding their addresses, indexed by vector.
func Render(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(generatedHeader)
	bw.WriteString("#include \"textflag.h\"\n\n")

	stubs := Stubs()
	for _, s := range stubs {
		bw.WriteString("TEXT " + s.Symbol() + "(SB),NOSPLIT,$0\n")
		for _, op := range s.Ops() {
			switch op.Kind {
			case OpDisableInterrupts:
				bw.WriteString("\tCLI\n")
			case OpPushImm:
				bw.WriteString("\tPUSHL $" + strconv.FormatUint(uint64(op.Imm), 10) + "\n")
			case OpJumpTrampoline:
				bw.WriteString("\tJMP " + trampolineSymbol + "\n")
			}
		}
		bw.WriteString("\n")
	}

	for _, s := range stubs {
		bw.WriteString("DATA " + stubTableSymbol + "+" + strconv.Itoa(int(s.Vector)*4) + "(SB)/4, $" + s.Symbol() + "(SB)\n")
	}
	bw.WriteString("GLOBL " + stubTableSymbol + "(SB), RODATA|NOPTR, $" + strconv.Itoa(VectorCount*4) + "\n")

	return bw.Flush()
}

// RenderDecls writes the Go declarations of the stubs emitted by Render. The
// linker rejects assembly functions of a Go package that have no Go
// prototype.
func RenderDecls(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(generatedHeader)
	bw.WriteString("package " + stubPackage + "\n\n")
	bw.WriteString("// Interrupt entry stubs. They are only reached through the IDT.\n")
	for _, s := range Stubs() {
		bw.WriteString("func vector" + strconv.Itoa(int(s.Vector)) + "()\n")
	}

	return bw.Flush()
}
