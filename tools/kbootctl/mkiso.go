package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	diskpkg "github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/iso9660"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

const (
	isoKernelPath     = "/boot/kernel.bin"
	isoGrubConfigPath = "/boot/grub/grub.cfg"
	isoGrubImagePath  = "/boot/grub/eltorito.img"

	isoBlockSize = diskfs.SectorSize(2048)

	// isoSlack covers the ISO9660 descriptors, directory records and the
	// boot catalog.
	isoSlack = 4 << 20
)

// mkISO implements subcommands.Command for the "mkiso" command.
type mkISO struct {
	kernel     string
	grubImage  string
	grubConfig string
	output     string
	volumeID   string
	cmdLine    string
}

// Name implements subcommands.Command.
func (*mkISO) Name() string {
	return "mkiso"
}

// Synopsis implements subcommands.Command.
func (*mkISO) Synopsis() string {
	return "packages the kernel into an El Torito bootable GRUB ISO"
}

// Usage implements subcommands.Command.
func (*mkISO) Usage() string {
	return `mkiso [-kernel kernel.bin] [-grub-image eltorito.img] [-grub-cfg grub.cfg] [-o kernel.iso]
`
}

// SetFlags implements subcommands.Command.
func (m *mkISO) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.kernel, "kernel", "", "linked kernel image; overrides iso.kernel.")
	f.StringVar(&m.grubImage, "grub-image", "", "GRUB El Torito boot image; overrides iso.grub_eltorito.")
	f.StringVar(&m.grubConfig, "grub-cfg", "", "GRUB configuration; generated when neither this nor iso.grub_cfg is set.")
	f.StringVar(&m.output, "o", "", "output ISO; overrides iso.output.")
	f.StringVar(&m.volumeID, "volume-id", "", "ISO volume identifier; overrides iso.volume_id.")
	f.StringVar(&m.cmdLine, "cmdline", "", "kernel command line of the generated GRUB entry; overrides iso.cmdline.")
}

// Execute implements subcommands.Command.
func (m *mkISO) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	opts := m.merge(configFrom(args).ISO)
	if err := buildISO(opts); err != nil {
		logrus.WithError(err).Error("mkiso")
		return subcommands.ExitFailure
	}

	logrus.WithField("iso", opts.Output).Info("bootable image created")
	return subcommands.ExitSuccess
}

// merge returns cfg with the values of the flags that were set.
func (m *mkISO) merge(cfg ISOConfig) ISOConfig {
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{m.kernel, &cfg.Kernel},
		{m.grubImage, &cfg.GrubImage},
		{m.grubConfig, &cfg.GrubConfig},
		{m.output, &cfg.Output},
		{m.volumeID, &cfg.VolumeID},
		{m.cmdLine, &cfg.CmdLine},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	return cfg
}

// grubConfig returns a GRUB configuration with a single entry booting the
// kernel through the multiboot2 protocol.
func grubConfig(volumeID, cmdLine string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "set timeout=0\nset default=0\n\n")
	fmt.Fprintf(&b, "menuentry %q {\n", volumeID)
	fmt.Fprintf(&b, "\tmultiboot2 %s", isoKernelPath)
	if cmdLine != "" {
		fmt.Fprintf(&b, " %s", cmdLine)
	}
	fmt.Fprintf(&b, "\n\tboot\n}\n")
	return b.String()
}

// isoSize returns the size of the image holding the listed files.
func isoSize(paths ...string) (int64, error) {
	size := int64(isoSlack)
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil {
			return 0, err
		}
		size += (st.Size() + int64(isoBlockSize) - 1) &^ (int64(isoBlockSize) - 1)
	}
	return size, nil
}

func buildISO(cfg ISOConfig) error {
	sources := []string{cfg.Kernel, cfg.GrubImage}
	if cfg.GrubConfig != "" {
		sources = append(sources, cfg.GrubConfig)
	}

	size, err := isoSize(sources...)
	if err != nil {
		return err
	}

	_ = os.Remove(cfg.Output)

	disk, err := diskfs.Create(cfg.Output, size, diskfs.Raw, isoBlockSize)
	if err != nil {
		return fmt.Errorf("creating %s: %w", cfg.Output, err)
	}

	fs, err := disk.CreateFilesystem(diskpkg.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeISO9660,
		VolumeLabel: cfg.VolumeID,
	})
	if err != nil {
		return fmt.Errorf("creating filesystem: %w", err)
	}

	if err := fs.Mkdir("/boot/grub"); err != nil {
		return err
	}

	if err := copyToFS(fs, cfg.Kernel, isoKernelPath); err != nil {
		return err
	}
	if err := copyToFS(fs, cfg.GrubImage, isoGrubImagePath); err != nil {
		return err
	}

	if cfg.GrubConfig != "" {
		err = copyToFS(fs, cfg.GrubConfig, isoGrubConfigPath)
	} else {
		err = writeToFS(fs, isoGrubConfigPath, strings.NewReader(grubConfig(cfg.VolumeID, cfg.CmdLine)))
	}
	if err != nil {
		return err
	}

	iso, ok := fs.(*iso9660.FileSystem)
	if !ok {
		return fmt.Errorf("unexpected filesystem type %T", fs)
	}

	return iso.Finalize(iso9660.FinalizeOptions{
		VolumeIdentifier: cfg.VolumeID,
		RockRidge:        true,
		ElTorito: &iso9660.ElTorito{
			BootCatalog: "boot.cat",
			Entries: []*iso9660.ElToritoEntry{
				{
					Platform:  iso9660.BIOS,
					Emulation: iso9660.NoEmulation,
					BootFile:  isoGrubImagePath,
					BootTable: true,
					LoadSize:  4,
				},
			},
		},
	})
}

func copyToFS(fs filesystem.FileSystem, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return writeToFS(fs, dst, in)
}

func writeToFS(fs filesystem.FileSystem, dst string, r io.Reader) error {
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return fmt.Errorf("%s: %w", dst, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: %w", dst, err)
	}
	return out.Close()
}
