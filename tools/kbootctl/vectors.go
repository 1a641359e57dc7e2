package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Harthann/Yak/kernel/gate/stubgen"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// vectors implements subcommands.Command for the "vectors" command.
type vectors struct {
	trace   int
	all     bool
	errCode uint
	eip     uint
	cs      uint
	eflags  uint
}

// Name implements subcommands.Command.
func (*vectors) Name() string {
	return "vectors"
}

// Synopsis implements subcommands.Command.
func (*vectors) Synopsis() string {
	return "lists the interrupt vectors or traces the frame a stub builds"
}

// Usage implements subcommands.Command.
func (*vectors) Usage() string {
	return `vectors [-all] [-trace vector [-error-code n] [-eip addr] [-cs sel] [-eflags n]]
`
}

// SetFlags implements subcommands.Command.
func (v *vectors) SetFlags(f *flag.FlagSet) {
	f.IntVar(&v.trace, "trace", -1, "print the stack the trampoline receives for this vector.")
	f.BoolVar(&v.all, "all", false, "list unassigned vectors too.")
	f.UintVar(&v.errCode, "error-code", 0, "error code pushed by the CPU when tracing.")
	f.UintVar(&v.eip, "eip", 0xc0100000, "interrupted EIP when tracing.")
	f.UintVar(&v.cs, "cs", 0x08, "interrupted CS when tracing.")
	f.UintVar(&v.eflags, "eflags", 0x202, "interrupted EFLAGS when tracing.")
}

// Execute implements subcommands.Command.
func (v *vectors) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || v.trace >= stubgen.VectorCount {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg := configFrom(args)
	if cfg.Kernel.IRQBase != stubgen.IRQBase || cfg.Kernel.SyscallVector != stubgen.SyscallVector {
		logrus.WithFields(logrus.Fields{
			"irq_base":       cfg.Kernel.IRQBase,
			"syscall_vector": cfg.Kernel.SyscallVector,
		}).Warn("configuration does not match the vector layout compiled into the kernel")
	}

	var err error
	if v.trace >= 0 {
		err = traceStub(os.Stdout, uint8(v.trace), uint32(v.eflags), uint32(v.cs), uint32(v.eip), uint32(v.errCode))
	} else {
		err = listVectors(os.Stdout, v.all)
	}

	if err != nil {
		logrus.WithError(err).Error("vectors")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// listVectors prints one row per vector. Unassigned vectors are skipped
// unless all is set.
func listVectors(w io.Writer, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VECTOR\tCLASS\tNAME\tERROR CODE\tGATE")
	for _, s := range stubgen.Stubs() {
		class := stubgen.Classify(s.Vector)
		if class == stubgen.ClassUnassigned && !all {
			continue
		}

		name := stubgen.Name(s.Vector)
		if class == stubgen.ClassIRQ {
			name = fmt.Sprintf("%s %d", name, int(s.Vector)-stubgen.IRQBase)
		}

		fmt.Fprintf(tw, "0x%02x\t%s\t%s\t%t\t0x%02x\n", s.Vector, class, name, s.ErrorCode, stubgen.GateAttributes(s.Vector))
	}
	return tw.Flush()
}

// traceStub prints the stack seen by the trampoline after the stub for
// vector ran, top of stack first.
func traceStub(w io.Writer, vector uint8, eflags, cs, eip, errCode uint32) error {
	stub := stubgen.StubFor(vector)
	stack := stub.Execute(eflags, cs, eip, errCode)

	labels := []string{"vector", "error code", "eip", "cs", "eflags"}
	if len(stack) != len(labels) {
		return fmt.Errorf("stub for vector %d left %d words on the stack; want %d", vector, len(stack), len(labels))
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "stub %s (%s)\n", stub.Symbol(), stubgen.Name(vector))
	for i, word := range stack {
		fmt.Fprintf(tw, "+%d\t%s\t0x%08x\n", i*4, labels[i], word)
	}
	return tw.Flush()
}
