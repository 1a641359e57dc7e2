package multiboot

import "unsafe"

var infoData uintptr

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
	tagElfSymbols
	tagApmTable
)

// tagHeader precedes every tag of the information structure.
type tagHeader struct {
	tagType tagType

	// size covers the header and the payload but not the padding that
	// aligns the next tag to 8 bytes.
	size uint32
}

type mmapHeader struct {
	entrySize    uint32
	entryVersion uint32
}

// FramebufferType is the mode the loader left the display in.
type FramebufferType uint8

const (
	// FramebufferTypeIndexed is a 256-color palette mode.
	FramebufferTypeIndexed FramebufferType = iota

	// FramebufferTypeRGB is a direct color mode.
	FramebufferTypeRGB

	// FramebufferTypeEGA is an EGA text mode.
	FramebufferTypeEGA
)

// FramebufferInfo describes the display set up by the loader.
type FramebufferInfo struct {
	PhysAddr uint64
	Pitch    uint32

	// Width and Height count characters for FramebufferTypeEGA and pixels
	// otherwise.
	Width, Height uint32

	Bpp  uint8
	Type FramebufferType

	reserved uint16
}

// MemoryEntryType classifies a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable is free RAM.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved must not be touched.
	MemReserved

	// MemAcpiReclaimable holds ACPI tables and may be reused once parsed.
	MemAcpiReclaimable

	// MemNvs must be preserved across hibernation.
	MemNvs

	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry is one region of the memory map.
type MemoryMapEntry struct {
	PhysAddress uint64
	Length      uint64
	Type        MemoryEntryType
}

// MemRegionVisitor is invoked by VisitMemRegions for every region. It returns
// false to stop the scan.
type MemRegionVisitor func(*MemoryMapEntry) bool

// CmdLineVisitor is invoked by VisitBootCmdLine for every word of the kernel
// command line. Words of the form key=value are split at the first '='; for
// bare words value is empty. It returns false to stop the scan.
type CmdLineVisitor func(key, value string) bool

// SetInfoPtr sets the virtual address of the information structure. It must
// be called before any other function of this file.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// InfoSize returns the total size of the information structure in bytes.
func InfoSize() uint32 {
	if infoData == 0 {
		return 0
	}
	return *(*uint32)(unsafe.Pointer(infoData))
}

// VisitMemRegions invokes visitor for each memory region reported by the
// loader. Regions with an unknown type are reported as MemReserved.
func VisitMemRegions(visitor MemRegionVisitor) {
	curPtr, size := findTagByType(tagMemoryMap)
	if size == 0 {
		return
	}

	header := (*mmapHeader)(unsafe.Pointer(curPtr))
	endPtr := curPtr + uintptr(size)

	for curPtr += unsafe.Sizeof(*header); curPtr < endPtr; curPtr += uintptr(header.entrySize) {
		entry := (*MemoryMapEntry)(unsafe.Pointer(curPtr))
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(entry) {
			return
		}
	}
}

// GetFramebufferInfo returns the framebuffer set up by the loader or nil if
// the loader did not report one.
func GetFramebufferInfo() *FramebufferInfo {
	curPtr, size := findTagByType(tagFramebufferInfo)
	if size == 0 {
		return nil
	}
	return (*FramebufferInfo)(unsafe.Pointer(curPtr))
}

// cString returns the NUL-terminated string stored in the size bytes at ptr
// without copying it.
func cString(ptr uintptr, size uint32) string {
	var n uint32
	for ; n < size && *(*byte)(unsafe.Pointer(ptr + uintptr(n))) != 0; n++ {
	}
	if n == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(ptr)), n)
}

// BootLoaderName returns the name reported by the loader. The string aliases
// the information structure.
func BootLoaderName() string {
	curPtr, size := findTagByType(tagBootLoaderName)
	if size == 0 {
		return ""
	}
	return cString(curPtr, size)
}

// VisitBootCmdLine walks the kernel command line. It does not allocate: the
// strings passed to visitor alias the information structure.
func VisitBootCmdLine(visitor CmdLineVisitor) {
	curPtr, size := findTagByType(tagBootCmdLine)
	if size == 0 {
		return
	}

	line := cString(curPtr, size)
	for start := 0; start < len(line); {
		for start < len(line) && line[start] == ' ' {
			start++
		}

		end := start
		for end < len(line) && line[end] != ' ' {
			end++
		}

		if start == end {
			break
		}

		word, key, value := line[start:end], line[start:end], ""
		for i := 0; i < len(word); i++ {
			if word[i] == '=' {
				key, value = word[:i], word[i+1:]
				break
			}
		}

		if !visitor(key, value) {
			return
		}
		start = end
	}
}

// BootCmdLineValue returns the value of key on the kernel command line.
func BootCmdLineValue(key string) (value string, found bool) {
	VisitBootCmdLine(func(k, v string) bool {
		if k == key {
			value, found = v, true
			return false
		}
		return true
	})
	return value, found
}

// findTagByType returns the payload address and size of the first tag of the
// given type, or (0, 0) if the loader did not provide one.
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	curPtr := infoData + 8
	for {
		header := (*tagHeader)(unsafe.Pointer(curPtr))
		if header.tagType == tagMbSectionEnd {
			return 0, 0
		}

		if header.tagType == tagType {
			return curPtr + 8, header.size - 8
		}

		curPtr += uintptr((header.size + 7) &^ 7)
	}
}
