package console

import "unsafe"

const (
	// DefaultEgaWidth and DefaultEgaHeight are the dimensions of VGA text
	// mode 0x3 which BIOS firmware leaves active.
	DefaultEgaWidth  = 80
	DefaultEgaHeight = 25

	// DefaultEgaPhysAddr is the physical address of the text mode
	// framebuffer.
	DefaultEgaPhysAddr = uintptr(0xb8000)

	egaColorCount = 16
)

// Ega implements an EGA-compatible text console. Each character cell is
// represented using two bytes: the ASCII code and an attribute byte that
// encodes the background (high nibble) and foreground (low nibble) colors.
//
// The console writes straight into the framebuffer window it was initialized
// with; it keeps no shadow copy of its contents.
type Ega struct {
	width  uint32
	height uint32

	fb []uint16

	defaultFg uint8
	defaultBg uint8
	clearChar uint16
}

// Init sets up the console to use the columns x rows framebuffer at the
// virtual address fbAddr. The default colors are light grey on black.
func (cons *Ega) Init(columns, rows uint32, fbAddr uintptr) {
	cons.width = columns
	cons.height = rows
	cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(fbAddr)), columns*rows)
	cons.defaultFg = LightGrey
	cons.defaultBg = Black
	cons.clearChar = uint16(' ')
}

// Dimensions returns the console width and height in characters.
func (cons *Ega) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// DefaultColors returns the default foreground and background colors
// used by this console.
func (cons *Ega) DefaultColors() (fg uint8, bg uint8) {
	return cons.defaultFg, cons.defaultBg
}

// Fill sets the contents of the specified rectangular region to the requested
// color. Both x and y coordinates are 1-based.
func (cons *Ega) Fill(x, y, width, height uint32, fg, bg uint8) {
	var (
		clr                  = cell(cons.clearChar, fg, bg)
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x == 0 {
		x = 1
	} else if x >= cons.width {
		x = cons.width
	}

	if y == 0 {
		y = 1
	} else if y >= cons.height {
		y = cons.height
	}

	if x+width-1 > cons.width {
		width = cons.width - x + 1
	}

	if y+height-1 > cons.height {
		height = cons.height - y + 1
	}

	rowOffset = ((y - 1) * cons.width) + (x - 1)
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Scroll the console contents to the specified direction. The caller
// is responsible for updating (e.g. clear or replace) the contents of
// the region that was scrolled.
func (cons *Ega) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	var i uint32
	offset := lines * cons.width

	switch dir {
	case ScrollDirUp:
		for ; i < (cons.height-lines)*cons.width; i++ {
			cons.fb[i] = cons.fb[i+offset]
		}
	case ScrollDirDown:
		for i = cons.height*cons.width - 1; i >= lines*cons.width; i-- {
			cons.fb[i] = cons.fb[i-offset]
		}
	}
}

// Write a char to the specified location. Colors outside the 16 EGA colors
// are replaced by the console defaults. Both x and y coordinates are 1-based.
func (cons *Ega) Write(ch byte, fg, bg uint8, x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	if fg >= egaColorCount {
		fg = cons.defaultFg
	}
	if bg >= egaColorCount {
		bg = cons.defaultBg
	}

	cons.fb[((y-1)*cons.width)+(x-1)] = cell(uint16(ch), fg, bg)
}

func cell(ch uint16, fg, bg uint8) uint16 {
	return (((uint16(bg) << 4) | uint16(fg)) << 8) | ch
}
