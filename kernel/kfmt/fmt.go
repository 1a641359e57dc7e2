// Package kfmt implements formatted output for code that runs before (and
// without) the Go allocator.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize bounds the width of a formatted integer.
const numBufSize = 32

var (
	errMissingArg = []byte("%!(MISSING)")
	errWrongType  = []byte("%!(WRONGTYPE)")
	errNoVerb     = []byte("%!(NOVERB)")
	errExtraArg   = []byte("%!(EXTRA)")
	trueValue     = []byte("true")
	falseValue    = []byte("false")

	digits = "0123456789abcdef"

	// numBuf and oneByte are shared scratch buffers. Output is only ever
	// produced by a single CPU with interrupts off or from the boot path,
	// so they need no locking.
	numBuf  [numBufSize]byte
	oneByte [1]byte

	// earlyBuffer captures output until a sink is attached.
	earlyBuffer ringBuffer

	// outputSink receives the output of Printf. While nil, output goes to
	// earlyBuffer.
	outputSink io.Writer
)

// SetOutputSink redirects Printf output to w and replays everything captured
// by the early ring buffer into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyBuffer)
	}
}

// GetOutputSink returns the writer currently receiving Printf output. It
// returns nil while output is being captured by the early ring buffer.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf writes formatted output to the active sink. It never allocates so it
// can be called from interrupt handlers and from the boot path.
//
// The supported verbs are a subset of those understood by fmt.Printf:
//
//	%s  string or []byte
//	%c  single byte character
//	%d  integer, base 10
//	%o  integer, base 8
//	%x  integer, base 16 with lower-case digits
//	%t  bool
//	%%  a literal percent sign
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes.
//
// Arguments are never checked for io.Stringer or error; doing so requires the
// itab machinery which is not usable before the runtime is initialized.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes to w. A nil w selects the early ring
// buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			// slicing format would force a string to []byte conversion
			// which allocates, so literal text is emitted one byte at a time.
			writeByte(w, format[i])
			continue
		}

		width = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[i]
		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'o', 'x', 's', 't', 'c':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch verb {
		case 'd':
			fmtInt(w, arg, 10, width)
		case 'o':
			fmtInt(w, arg, 8, width)
		case 'x':
			fmtInt(w, arg, 16, width)
		case 's':
			fmtString(w, arg, width)
		case 't':
			fmtBool(w, arg)
		case 'c':
			fmtChar(w, arg)
		}
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtChar(w io.Writer, v interface{}) {
	switch ch := v.(type) {
	case uint8:
		writeByte(w, ch)
	case int32:
		if ch < 0 || ch > 0x7f {
			ch = '?'
		}
		writeByte(w, byte(ch))
	default:
		doWrite(w, errWrongType)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		padWith(w, ' ', width-len(s))
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		padWith(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongType)
	}
}

func padWith(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt formats any built-in integer type in the requested base. Base-10
// values are space padded with the sign counted towards the width; other
// bases are zero padded and a sign, if any, is prepended after padding.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		mag uint64
		neg bool
	)

	switch n := v.(type) {
	case uint8:
		mag = uint64(n)
	case uint16:
		mag = uint64(n)
	case uint32:
		mag = uint64(n)
	case uint64:
		mag = n
	case uint:
		mag = uint64(n)
	case uintptr:
		mag = uint64(n)
	case int8:
		mag, neg = signed(int64(n))
	case int16:
		mag, neg = signed(int64(n))
	case int32:
		mag, neg = signed(int64(n))
	case int64:
		mag, neg = signed(n)
	case int:
		mag, neg = signed(int64(n))
	default:
		doWrite(w, errWrongType)
		return
	}

	if width > numBufSize-1 {
		width = numBufSize - 1
	}

	pos := numBufSize
	for {
		pos--
		numBuf[pos] = digits[mag%base]
		if mag /= base; mag == 0 {
			break
		}
	}

	if base == 10 {
		if neg {
			pos--
			numBuf[pos] = '-'
		}
		for numBufSize-pos < width {
			pos--
			numBuf[pos] = ' '
		}
	} else {
		for numBufSize-pos < width {
			pos--
			numBuf[pos] = '0'
		}
		if neg {
			pos--
			numBuf[pos] = '-'
		}
	}

	doWrite(w, numBuf[pos:])
}

func signed(n int64) (uint64, bool) {
	if n < 0 {
		return uint64(-n), true
	}
	return uint64(n), false
}

func writeByte(w io.Writer, ch byte) {
	oneByte[0] = ch
	doWrite(w, oneByte[:])
}

// doWrite hides p from escape analysis. The compiler cannot see through the
// io.Writer call and would otherwise move every formatted argument to the
// heap, which crashes the kernel while no allocator exists.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
		return
	}
	earlyBuffer.Write(p)
}

// noEscape is the same trick as runtime.noescape.
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
