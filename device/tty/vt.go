// Package tty implements the terminal that kernel output is written to.
package tty

import (
	"io"

	"github.com/Harthann/Yak/device/video/console"
	"github.com/Harthann/Yak/kernel/sync"
)

// DefaultTabWidth defines the number of spaces that tabs expand to.
const DefaultTabWidth = 4

// Vt implements a terminal on top of a console device. The terminal
// interprets the following special characters:
//   - \r (carriage-return)
//   - \n (line-feed)
//   - \b (backspace)
//   - \t (tab; expanded to tabWidth spaces)
//
// Output that moves past the last line scrolls the console up. The terminal
// keeps no scrollback and never allocates, so it can be attached before the
// kernel has a heap.
type Vt struct {
	lock sync.Spinlock
	cons console.Device

	width  uint32
	height uint32

	tabWidth             uint8
	defaultFg, defaultBg uint8
	curFg, curBg         uint8

	// cursor coordinates are 1-based.
	cursorX uint32
	cursorY uint32
}

// AttachTo connects the terminal to a console and moves the cursor to the
// top-left corner.
func (t *Vt) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	t.lock.Acquire()
	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.defaultFg, t.defaultBg = cons.DefaultColors()
	t.curFg, t.curBg = t.defaultFg, t.defaultBg
	t.cursorX, t.cursorY = 1, 1
	if t.tabWidth == 0 {
		t.tabWidth = DefaultTabWidth
	}
	t.lock.Release()
}

// Dimensions returns the terminal width and height in characters.
func (t *Vt) Dimensions() (uint32, uint32) {
	return t.width, t.height
}

// Clear fills the console with the default colors and homes the cursor.
func (t *Vt) Clear() {
	if t.cons == nil {
		return
	}

	t.lock.Acquire()
	t.cons.Fill(1, 1, t.width, t.height, t.defaultFg, t.defaultBg)
	t.cursorX, t.cursorY = 1, 1
	t.lock.Release()
}

// SetColors selects the colors used by subsequent writes.
func (t *Vt) SetColors(fg, bg uint8) {
	t.lock.Acquire()
	t.curFg, t.curBg = fg, bg
	t.lock.Release()
}

// CursorPosition returns the current cursor position. Both coordinates are
// 1-based.
func (t *Vt) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// SetCursorPosition sets the current cursor position to (x,y) clipping it to
// the terminal dimensions.
func (t *Vt) SetCursorPosition(x, y uint32) {
	if t.cons == nil {
		return
	}

	t.lock.Acquire()
	t.setCursorPosition(x, y)
	t.lock.Release()
}

func (t *Vt) setCursorPosition(x, y uint32) {
	if x < 1 {
		x = 1
	} else if x > t.width {
		x = t.width
	}

	if y < 1 {
		y = 1
	} else if y > t.height {
		y = t.height
	}

	t.cursorX, t.cursorY = x, y
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	if t.cons == nil {
		return 0, io.ErrClosedPipe
	}

	t.lock.Acquire()
	for _, b := range data {
		t.writeByte(b)
	}
	t.lock.Release()

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	t.lock.Acquire()
	t.writeByte(b)
	t.lock.Release()
	return nil
}

func (t *Vt) writeByte(b byte) {
	switch b {
	case '\r':
		t.cursorX = 1
	case '\n':
		t.lf()
	case '\b':
		if t.cursorX > 1 {
			t.cursorX--
			t.cons.Write(' ', t.curFg, t.curBg, t.cursorX, t.cursorY)
		}
	case '\t':
		for i := uint8(0); i < t.tabWidth; i++ {
			t.put(' ')
		}
	default:
		t.put(b)
	}
}

// put writes b at the cursor and advances it, wrapping to the next line when
// the cursor moves past the last column.
func (t *Vt) put(b byte) {
	t.cons.Write(b, t.curFg, t.curBg, t.cursorX, t.cursorY)

	t.cursorX++
	if t.cursorX > t.width {
		t.lf()
	}
}

// lf moves the cursor to the start of the next line scrolling the console
// contents if the cursor is already on the last line.
func (t *Vt) lf() {
	t.cursorX = 1

	if t.cursorY < t.height {
		t.cursorY++
		return
	}

	t.cons.Scroll(console.ScrollDirUp, 1)
	t.cons.Fill(1, t.height, t.width, 1, t.defaultFg, t.defaultBg)
}
