package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the kbootctl configuration. Flags of individual commands override
// the values loaded from the file.
type Config struct {
	Kernel KernelConfig `toml:"kernel"`
	ISO    ISOConfig    `toml:"iso"`
}

// KernelConfig describes the memory layout the kernel is built for.
type KernelConfig struct {
	// HighOffset is added to physical addresses to form the kernel's
	// link addresses.
	HighOffset uint64 `toml:"high_offset"`

	// PhysBase is the start of the physical range mapped at boot.
	PhysBase uint64 `toml:"phys_base"`

	// IRQBase is the vector the first PIC line is remapped to.
	IRQBase int `toml:"irq_base"`

	// SyscallVector is the vector of the ring 3 callable gate.
	SyscallVector int `toml:"syscall_vector"`
}

// ISOConfig describes the bootable image built by mkiso.
type ISOConfig struct {
	Kernel     string `toml:"kernel"`
	GrubImage  string `toml:"grub_eltorito"`
	GrubConfig string `toml:"grub_cfg"`
	Output     string `toml:"output"`
	VolumeID   string `toml:"volume_id"`
	CmdLine    string `toml:"cmdline"`
}

// DefaultConfig returns the configuration matching the kernel sources.
func DefaultConfig() *Config {
	return &Config{
		Kernel: KernelConfig{
			HighOffset:    0xc0000000,
			PhysBase:      0,
			IRQBase:       32,
			SyscallVector: 0x80,
		},
		ISO: ISOConfig{
			Kernel:    "build/kernel.bin",
			GrubImage: "build/eltorito.img",
			Output:    "build/kernel.iso",
			VolumeID:  "YAK",
		},
	}
}

// loadConfig returns DefaultConfig overlaid with the contents of path. An
// empty path selects the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("%s: unknown configuration key %q", path, undecoded[0].String())
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

const (
	tableSpan  = 4 << 20
	vectorSpan = 256
)

func (c *Config) validate() error {
	k := c.Kernel
	switch {
	case k.HighOffset%tableSpan != 0 || k.HighOffset > 0xffffffff:
		return fmt.Errorf("high_offset 0x%x is not a 4 MiB aligned 32-bit address", k.HighOffset)
	case k.PhysBase%tableSpan != 0 || k.PhysBase+tableSpan > k.HighOffset:
		return fmt.Errorf("phys_base 0x%x must be 4 MiB aligned and map below high_offset", k.PhysBase)
	case k.IRQBase%8 != 0 || k.IRQBase < 32 || k.IRQBase+16 > vectorSpan:
		return fmt.Errorf("irq_base %d must be a multiple of 8 past the exception vectors", k.IRQBase)
	case k.SyscallVector < 32 || k.SyscallVector >= vectorSpan:
		return fmt.Errorf("syscall_vector %d is not a software interrupt vector", k.SyscallVector)
	case k.SyscallVector >= k.IRQBase && k.SyscallVector < k.IRQBase+16:
		return fmt.Errorf("syscall_vector %d overlaps the IRQ vectors", k.SyscallVector)
	}
	return nil
}
