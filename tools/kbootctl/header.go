package main

import (
	"context"
	"debug/elf"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Harthann/Yak/multiboot"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// header implements subcommands.Command for the "header" command.
type header struct {
	output string
	check  string
}

// Name implements subcommands.Command.
func (*header) Name() string {
	return "header"
}

// Synopsis implements subcommands.Command.
func (*header) Synopsis() string {
	return "emits the multiboot2 header or checks the header of a linked kernel"
}

// Usage implements subcommands.Command.
func (*header) Usage() string {
	return `header -o header.bin
header -check kernel.bin
`
}

// SetFlags implements subcommands.Command.
func (h *header) SetFlags(f *flag.FlagSet) {
	f.StringVar(&h.output, "o", "", "write the encoded header to this file.")
	f.StringVar(&h.check, "check", "", "verify the header of this linked kernel image.")
}

// Execute implements subcommands.Command.
func (h *header) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || (h.output == "") == (h.check == "") {
		f.Usage()
		return subcommands.ExitUsageError
	}

	if h.output != "" {
		data, err := multiboot.NewHeader().MarshalBinary()
		if err == nil {
			err = os.WriteFile(h.output, data, 0644)
		}
		if err != nil {
			logrus.WithError(err).Error("writing header")
			return subcommands.ExitFailure
		}
		logrus.WithField("file", h.output).Debugf("wrote %d header bytes", len(data))
		return subcommands.ExitSuccess
	}

	cfg := configFrom(args)
	report, err := checkImage(h.check, cfg.Kernel.HighOffset)
	if err != nil {
		logrus.WithError(err).Errorf("%s is not bootable", h.check)
		return subcommands.ExitFailure
	}

	fields := logrus.Fields{
		"offset": report.offset,
		"length": report.header.HeaderLength,
		"entry":  fmt.Sprintf("0x%x", report.entry),
	}
	if report.entryVirtual {
		logrus.WithFields(fields).Warn("entry point is not a physical address; the loader jumps to it before paging is enabled")
	} else {
		logrus.WithFields(fields).Info("multiboot2 header ok")
	}
	return subcommands.ExitSuccess
}

var errNot386 = errors.New("image is not a 32-bit i386 ELF")

// imageReport is the result of checkImage.
type imageReport struct {
	header       multiboot.Header
	offset       int
	entry        uint64
	entryVirtual bool
}

// checkImage validates that path is an i386 ELF executable carrying a
// multiboot2 header in its first multiboot.HeaderSearchLimit bytes.
func checkImage(path string, highOffset uint64) (*imageReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("parsing ELF: %w", err)
	}
	if ef.Class != elf.ELFCLASS32 || ef.Machine != elf.EM_386 {
		return nil, errNot386
	}

	head := make([]byte, multiboot.HeaderSearchLimit)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	hdr, offset, err := multiboot.Find(head[:n])
	if err != nil {
		return nil, err
	}

	return &imageReport{
		header:       hdr,
		offset:       offset,
		entry:        ef.Entry,
		entryVirtual: ef.Entry >= highOffset,
	}, nil
}
