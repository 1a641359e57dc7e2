package kfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	var (
		rb  ringBuffer
		buf = make([]byte, 8)
	)

	if n, err := rb.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("expected empty buffer read to return (0, io.EOF); got (%d, %v)", n, err)
	}

	rb.Write([]byte("hello"))
	n, err := rb.Read(buf[:3])
	if err != nil || string(buf[:n]) != "hel" {
		t.Fatalf("expected partial read to return %q; got %q (err %v)", "hel", buf[:n], err)
	}

	n, _ = rb.Read(buf)
	if string(buf[:n]) != "lo" {
		t.Fatalf("expected remaining read to return %q; got %q", "lo", buf[:n])
	}
}

func TestRingBufferOverwrite(t *testing.T) {
	var rb ringBuffer

	data := bytes.Repeat([]byte("0123456789abcdef"), ringBufferSize/8)
	rb.Write(data)

	var out bytes.Buffer
	io.Copy(&out, &rb)

	exp := data[len(data)-(ringBufferSize-1):]
	if !bytes.Equal(out.Bytes(), exp) {
		t.Fatalf("expected the last %d bytes to survive; got %d bytes", len(exp), out.Len())
	}
}
