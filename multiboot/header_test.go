package multiboot

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewHeader(t *testing.T) {
	h := NewHeader()

	if h.Magic != 0xe85250d6 || h.Architecture != 0 || h.HeaderLength != 24 {
		t.Fatalf("unexpected header %+v", h)
	}

	if sum := h.Magic + h.Architecture + h.HeaderLength + h.Checksum; sum != 0 {
		t.Fatalf("expected fields to sum to 0 mod 2^32; got 0x%x", sum)
	}

	if err := h.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	exp := []byte{
		0xd6, 0x50, 0x52, 0xe8,
		0x00, 0x00, 0x00, 0x00,
		0x18, 0x00, 0x00, 0x00,
		0x12, 0xaf, 0xad, 0x17,
		// end tag
		0x00, 0x00, 0x00, 0x00,
		0x08, 0x00, 0x00, 0x00,
	}
	if diff := cmp.Diff(exp, data); diff != "" {
		t.Fatalf("unexpected encoded header (-want +got):\n%s", diff)
	}
}

func TestHeaderValidate(t *testing.T) {
	specs := []struct {
		descr  string
		header Header
		expErr error
	}{
		{"valid", NewHeader(), nil},
		{
			"bad magic",
			Header{Magic: 0x1badb002, HeaderLength: 24, Checksum: Checksum(0x1badb002, 0, 24)},
			ErrBadMagic,
		},
		{
			"wrong architecture",
			Header{Magic: HeaderMagic, Architecture: 4, HeaderLength: 24, Checksum: Checksum(HeaderMagic, 4, 24)},
			ErrBadArchitecture,
		},
		{
			"checksum off by one",
			Header{Magic: HeaderMagic, HeaderLength: 24, Checksum: Checksum(HeaderMagic, 0, 24) + 1},
			ErrBadChecksum,
		},
		{
			"too short",
			Header{Magic: HeaderMagic, HeaderLength: 16, Checksum: Checksum(HeaderMagic, 0, 16)},
			ErrBadLength,
		},
		{
			"unaligned length",
			Header{Magic: HeaderMagic, HeaderLength: 28, Checksum: Checksum(HeaderMagic, 0, 28)},
			ErrBadLength,
		},
	}

	for _, spec := range specs {
		if err := spec.header.Validate(); err != spec.expErr {
			t.Errorf("%s: expected error %v; got %v", spec.descr, spec.expErr, err)
		}
	}
}

func TestHeaderDetectsFieldMutation(t *testing.T) {
	mutate := func(fn func(*Header)) Header {
		h := NewHeader()
		fn(&h)
		return h
	}

	specs := []struct {
		descr  string
		header Header
		expErr error
	}{
		{"magic", mutate(func(h *Header) { h.Magic = 0x1badb002 }), ErrBadMagic},
		{"architecture", mutate(func(h *Header) { h.Architecture = 4 }), ErrBadArchitecture},
		{"length", mutate(func(h *Header) { h.HeaderLength = 32 }), ErrBadChecksum},
		{"length by one", mutate(func(h *Header) { h.HeaderLength++ }), ErrBadChecksum},
		{"checksum", mutate(func(h *Header) { h.Checksum ^= 0x80000000 }), ErrBadChecksum},
	}

	for _, spec := range specs {
		if err := spec.header.Validate(); err != spec.expErr {
			t.Errorf("%s: expected error %v; got %v", spec.descr, spec.expErr, err)
		}
	}

	// any single bit flip in the fixed part of an encoded header is caught
	valid, err := NewHeader().MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	for offset := 0; offset < 16; offset++ {
		for bit := uint(0); bit < 8; bit++ {
			data := append([]byte(nil), valid...)
			data[offset] ^= 1 << bit

			var h Header
			if err := h.UnmarshalBinary(data); err == nil {
				t.Errorf("byte %d bit %d: expected the flipped header to be rejected", offset, bit)
			}
		}
	}
}

// encodeHeader builds a header followed by the raw tag bytes and fixes up the
// length and checksum.
func encodeHeader(tags []byte) []byte {
	length := uint32(16 + len(tags))
	buf := make([]byte, 16, length)
	binary.LittleEndian.PutUint32(buf[0:], HeaderMagic)
	binary.LittleEndian.PutUint32(buf[4:], ArchitectureI386)
	binary.LittleEndian.PutUint32(buf[8:], length)
	binary.LittleEndian.PutUint32(buf[12:], Checksum(HeaderMagic, ArchitectureI386, length))
	return append(buf, tags...)
}

func TestHeaderUnmarshalBinary(t *testing.T) {
	endTag := []byte{0, 0, 0, 0, 8, 0, 0, 0}
	// a 12 byte tag padded to 16 bytes
	infoRequest := []byte{1, 0, 0, 0, 12, 0, 0, 0, 6, 0, 0, 0, 0, 0, 0, 0}

	specs := []struct {
		descr  string
		data   []byte
		expErr error
	}{
		{"end tag only", encodeHeader(endTag), nil},
		{"optional tag", encodeHeader(append(append([]byte{}, infoRequest...), endTag...)), nil},
		{"missing end tag", encodeHeader(infoRequest[:8]), ErrBadLength},
		{"truncated", encodeHeader(endTag)[:20], ErrBadLength},
		{"end tag with bad size", encodeHeader([]byte{0, 0, 0, 0, 16, 0, 0, 0}), ErrBadLength},
	}

	for _, spec := range specs {
		var h Header
		if err := h.UnmarshalBinary(spec.data); err != spec.expErr {
			t.Errorf("%s: expected error %v; got %v", spec.descr, spec.expErr, err)
		}
	}

	data, _ := NewHeader().MarshalBinary()
	var h Header
	if err := h.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if h != NewHeader() {
		t.Fatalf("expected decoded header %+v; got %+v", NewHeader(), h)
	}
}

func TestFind(t *testing.T) {
	header, _ := NewHeader().MarshalBinary()

	place := func(size int, offsets ...int) []byte {
		image := make([]byte, size)
		for i := range image {
			image[i] = 0x90
		}
		for _, offset := range offsets {
			copy(image[offset:], header)
		}
		return image
	}

	specs := []struct {
		descr     string
		image     []byte
		expOffset int
		expErr    error
	}{
		{"at start", place(64, 0), 0, nil},
		{"aligned inside the search window", place(8192, 4096), 4096, nil},
		{"last aligned slot", place(HeaderSearchLimit, HeaderSearchLimit-HeaderSize), HeaderSearchLimit - HeaderSize, nil},
		{"unaligned", place(8192, 4100), -1, ErrHeaderNotFound},
		{"past the search window", place(65536, 40000), -1, ErrHeaderNotFound},
		{"empty image", nil, -1, ErrHeaderNotFound},
	}

	for _, spec := range specs {
		_, offset, err := Find(spec.image)
		if err != spec.expErr || offset != spec.expOffset {
			t.Errorf("%s: expected (%d, %v); got (%d, %v)", spec.descr, spec.expOffset, spec.expErr, offset, err)
		}
	}

	t.Run("skips corrupt candidates", func(t *testing.T) {
		image := place(4096, 8, 64)
		image[8+12] ^= 0xff

		h, offset, err := Find(image)
		if err != nil || offset != 64 {
			t.Fatalf("expected header at offset 64; got (%d, %v)", offset, err)
		}
		if h != NewHeader() {
			t.Fatalf("unexpected header %+v", h)
		}
	})
}
