package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Harthann/Yak/kernel/mm"
	"github.com/Harthann/Yak/kernel/mm/vmm"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// pageMap implements subcommands.Command for the "pagemap" command.
type pageMap struct {
	tablePhys  uint64
	kernelSize uint64
}

// Name implements subcommands.Command.
func (*pageMap) Name() string {
	return "pagemap"
}

// Synopsis implements subcommands.Command.
func (*pageMap) Synopsis() string {
	return "prints the boot page directory built for the configured layout"
}

// Usage implements subcommands.Command.
func (*pageMap) Usage() string {
	return `pagemap [-table-phys addr] [-kernel-size bytes] [virtual address...]
`
}

// SetFlags implements subcommands.Command.
func (p *pageMap) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&p.tablePhys, "table-phys", 0x106000, "physical address assumed for the boot page table.")
	f.Uint64Var(&p.kernelSize, "kernel-size", 1<<20, "size of the loaded kernel checked for relocation.")
}

// Execute implements subcommands.Command.
func (p *pageMap) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg := configFrom(args)

	var addrs []uintptr
	for _, arg := range f.Args() {
		addr, err := parseAddr(arg)
		if err != nil {
			logrus.WithError(err).Error("pagemap")
			return subcommands.ExitUsageError
		}
		addrs = append(addrs, addr)
	}

	bm := newBootMap(cfg.Kernel, uintptr(p.tablePhys))
	if err := bm.print(os.Stdout, addrs); err != nil {
		logrus.WithError(err).Error("pagemap")
		return subcommands.ExitFailure
	}

	// The kernel is loaded at 1 MiB above the mapped base.
	start := uintptr(cfg.Kernel.PhysBase) + 1<<20
	if err := bm.checkRelocation(start, start+uintptr(p.kernelSize)); err != nil {
		logrus.WithError(err).Error("relocation check failed")
		return subcommands.ExitFailure
	}
	logrus.Debug("relocation check passed")
	return subcommands.ExitSuccess
}

func parseAddr(s string) (uintptr, error) {
	var addr uint64
	if _, err := fmt.Sscanf(s, "0x%x", &addr); err != nil {
		return 0, fmt.Errorf("bad address %q: want 0x-prefixed hex", s)
	}
	if addr > 0xffffffff {
		return 0, fmt.Errorf("address %q does not fit in 32 bits", s)
	}
	return uintptr(addr), nil
}

// bootMap is a host copy of the boot address space.
type bootMap struct {
	dir       vmm.PageDirectory
	table     vmm.PageTable
	tablePhys uintptr
	offset    uintptr
}

func newBootMap(k KernelConfig, tablePhys uintptr) *bootMap {
	bm := &bootMap{
		tablePhys: mm.AlignDown(tablePhys),
		offset:    uintptr(k.HighOffset),
	}
	vmm.BootstrapMap(&bm.dir, &bm.table, bm.tablePhys, uintptr(k.PhysBase), bm.offset)
	return bm
}

func (bm *bootMap) resolve(phys uintptr) *vmm.PageTable {
	if phys != bm.tablePhys {
		return nil
	}
	return &bm.table
}

func (bm *bootMap) print(w io.Writer, addrs []uintptr) error {
	for i := 0; i < vmm.EntriesPerTable; i++ {
		if pde := bm.dir.Entry(i); pde&uint32(vmm.FlagPresent) != 0 {
			base := uintptr(i) * vmm.TableSpan
			fmt.Fprintf(w, "pd[%4d] 0x%08x-0x%08x -> table 0x%08x\n", i, base, base+vmm.TableSpan-1, pde&^uint32(mm.PageSize-1))
		}
	}

	for _, addr := range addrs {
		phys, err := vmm.Translate(&bm.dir, bm.resolve, addr)
		if err != nil {
			fmt.Fprintf(w, "0x%08x -> %s\n", addr, err.Message)
			continue
		}
		if _, err := fmt.Fprintf(w, "0x%08x -> 0x%08x\n", addr, phys); err != nil {
			return err
		}
	}
	return nil
}

func (bm *bootMap) checkRelocation(start, end uintptr) error {
	if err := vmm.CheckRelocation(&bm.dir, bm.resolve, start, end, bm.offset); err != nil {
		return fmt.Errorf("[%s] %s", err.Module, err.Message)
	}
	return nil
}
