// Package multiboot implements the parts of the multiboot2 protocol used by
// the kernel: the header that makes the image bootable and the information
// structure the boot loader hands over in EBX.
package multiboot

import (
	"encoding/binary"

	"github.com/Harthann/Yak/kernel"
)

const (
	// HeaderMagic identifies a multiboot2 header.
	HeaderMagic = uint32(0xe85250d6)

	// BootloaderMagic is left in EAX by a multiboot2 compliant loader.
	BootloaderMagic = uint32(0x36d76289)

	// ArchitectureI386 requests 32-bit protected mode.
	ArchitectureI386 = uint32(0)

	// HeaderSearchLimit is the number of image bytes a loader scans for the
	// header.
	HeaderSearchLimit = 32768

	// HeaderAlign is the required alignment of the header within the image.
	HeaderAlign = 8

	headerFixedSize = 16
	endTagSize      = 8

	// HeaderSize is the size of a header that carries only the end tag.
	HeaderSize = headerFixedSize + endTagSize
)

var (
	// ErrBadMagic is returned for a header whose magic is wrong.
	ErrBadMagic = &kernel.Error{Module: "multiboot", Message: "bad header magic"}

	// ErrBadArchitecture is returned for a header that does not request i386.
	ErrBadArchitecture = &kernel.Error{Module: "multiboot", Message: "unsupported architecture"}

	// ErrBadChecksum is returned when magic+architecture+length+checksum is
	// not zero modulo 2^32.
	ErrBadChecksum = &kernel.Error{Module: "multiboot", Message: "header checksum mismatch"}

	// ErrBadLength is returned when the header length does not cover the
	// tag list or the tag list is not terminated by an end tag.
	ErrBadLength = &kernel.Error{Module: "multiboot", Message: "bad header length or missing end tag"}

	// ErrHeaderNotFound is returned when no valid header is found within
	// HeaderSearchLimit bytes of the image start.
	ErrHeaderNotFound = &kernel.Error{Module: "multiboot", Message: "no multiboot2 header in the first 32 KiB"}
)

// Header is the fixed part of a multiboot2 header. On disk it is followed by
// a list of tags terminated by an end tag (type 0, flags 0, size 8).
type Header struct {
	Magic        uint32
	Architecture uint32
	HeaderLength uint32
	Checksum     uint32
}

// Checksum returns the value that makes magic+arch+length+checksum wrap to 0.
func Checksum(magic, arch, length uint32) uint32 {
	return -(magic + arch + length)
}

// NewHeader returns the header embedded in the kernel image: i386, no
// optional tags.
func NewHeader() Header {
	return Header{
		Magic:        HeaderMagic,
		Architecture: ArchitectureI386,
		HeaderLength: HeaderSize,
		Checksum:     Checksum(HeaderMagic, ArchitectureI386, HeaderSize),
	}
}

// Validate checks the fixed fields of h.
func (h Header) Validate() error {
	switch {
	case h.Magic != HeaderMagic:
		return ErrBadMagic
	case h.Architecture != ArchitectureI386:
		return ErrBadArchitecture
	case h.Magic+h.Architecture+h.HeaderLength+h.Checksum != 0:
		return ErrBadChecksum
	case h.HeaderLength < HeaderSize || h.HeaderLength%HeaderAlign != 0:
		return ErrBadLength
	}
	return nil
}

// MarshalBinary encodes h followed by the end tag.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Architecture)
	binary.LittleEndian.PutUint32(buf[8:], h.HeaderLength)
	binary.LittleEndian.PutUint32(buf[12:], h.Checksum)

	// end tag: type 0, flags 0, size 8
	binary.LittleEndian.PutUint32(buf[16:], 0)
	binary.LittleEndian.PutUint32(buf[20:], endTagSize)
	return buf, nil
}

// UnmarshalBinary decodes and validates a header, walking its tag list up to
// the end tag.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrBadLength
	}

	h.Magic = binary.LittleEndian.Uint32(data[0:])
	h.Architecture = binary.LittleEndian.Uint32(data[4:])
	h.HeaderLength = binary.LittleEndian.Uint32(data[8:])
	h.Checksum = binary.LittleEndian.Uint32(data[12:])

	if err := h.Validate(); err != nil {
		return err
	}

	if int(h.HeaderLength) > len(data) {
		return ErrBadLength
	}

	// Tags start 8-byte aligned and the end tag must close the header.
	for offset := headerFixedSize; offset+endTagSize <= int(h.HeaderLength); {
		tagType := binary.LittleEndian.Uint16(data[offset:])
		tagSize := int(binary.LittleEndian.Uint32(data[offset+4:]))

		if tagType == 0 {
			if tagSize != endTagSize || offset+endTagSize != int(h.HeaderLength) {
				return ErrBadLength
			}
			return nil
		}

		if tagSize < endTagSize {
			return ErrBadLength
		}
		offset += (tagSize + HeaderAlign - 1) &^ (HeaderAlign - 1)
	}

	return ErrBadLength
}

// Find scans the first HeaderSearchLimit bytes of image at HeaderAlign
// steps and returns the first valid header together with its offset.
func Find(image []byte) (Header, int, error) {
	limit := len(image)
	if limit > HeaderSearchLimit {
		limit = HeaderSearchLimit
	}

	var h Header
	for offset := 0; offset+HeaderSize <= limit; offset += HeaderAlign {
		if binary.LittleEndian.Uint32(image[offset:]) != HeaderMagic {
			continue
		}

		if err := h.UnmarshalBinary(image[offset:limit]); err == nil {
			return h, offset, nil
		}
	}

	return Header{}, -1, ErrHeaderNotFound
}
