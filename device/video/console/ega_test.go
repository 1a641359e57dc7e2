package console

import (
	"testing"
	"unsafe"
)

func newTestEga(fb []uint16, columns, rows uint32) *Ega {
	var cons Ega
	cons.Init(columns, rows, uintptr(unsafe.Pointer(&fb[0])))
	return &cons
}

func TestEgaInit(t *testing.T) {
	fb := make([]uint16, 40*50)
	var cons Device = newTestEga(fb, 40, 50)

	if w, h := cons.Dimensions(); w != 40 || h != 50 {
		t.Fatalf("expected console dimensions to be 40x50; got %dx%d", w, h)
	}

	if fg, bg := cons.DefaultColors(); fg != LightGrey || bg != Black {
		t.Fatalf("expected console default colors to be fg:7, bg:0; got fg:%d, bg: %d", fg, bg)
	}

	cons.Write('A', Red, Blue, 40, 50)
	if got, exp := fb[len(fb)-1], uint16(0x1441); got != exp {
		t.Fatalf("expected Init to map the console onto the supplied framebuffer; last cell is 0x%x, want 0x%x", got, exp)
	}
}

func TestEgaFill(t *testing.T) {
	specs := []struct {
		// Input rect
		x, y, w, h uint32

		// Expected area to be cleared
		expStartX, expStartY, expEndX, expEndY uint32
	}{
		{
			0, 0, 500, 500,
			1, 1, 80, 25,
		},
		{
			10, 10, 11, 50,
			10, 10, 20, 25,
		},
		{
			10, 10, 110, 1,
			10, 10, 80, 10,
		},
		{
			70, 20, 20, 20,
			70, 20, 80, 25,
		},
		{
			90, 25, 20, 20,
			80, 25, 80, 25,
		},
		{
			12, 12, 5, 6,
			12, 12, 16, 17,
		},
		{
			80, 25, 1, 1,
			80, 25, 80, 25,
		},
	}

	fb := make([]uint16, 80*25)
	cons := newTestEga(fb, 80, 25)
	cw, ch := cons.Dimensions()

	testPat := uint16(0xDEAD)
	clearPat := uint16(0x1f00) | cons.clearChar

nextSpec:
	for specIndex, spec := range specs {
		// Fill FB with test pattern
		for i := 0; i < len(fb); i++ {
			fb[i] = testPat
		}

		cons.Fill(spec.x, spec.y, spec.w, spec.h, White, Blue)

		var x, y uint32
		for y = 1; y <= ch; y++ {
			for x = 1; x <= cw; x++ {
				fbVal := fb[((y-1)*cw)+(x-1)]

				if x < spec.expStartX || y < spec.expStartY || x > spec.expEndX || y > spec.expEndY {
					if fbVal != testPat {
						t.Errorf("[spec %d] expected char at (%d, %d) not to be cleared", specIndex, x, y)
						continue nextSpec
					}
				} else {
					if fbVal != clearPat {
						t.Errorf("[spec %d] expected char at (%d, %d) to be cleared; got 0x%x", specIndex, x, y, fbVal)
						continue nextSpec
					}
				}
			}
		}
	}
}

func TestEgaScroll(t *testing.T) {
	fb := make([]uint16, 80*25)
	cons := newTestEga(fb, 80, 25)
	cw, ch := cons.Dimensions()

	fillPattern := func() {
		var x, y, index uint32
		for y = 0; y < ch; y++ {
			for x = 0; x < cw; x++ {
				fb[index] = uint16((y << 8) | x)
				index++
			}
		}
	}

	t.Run("up", func(t *testing.T) {
	nextSpec:
		for specIndex, lines := range []uint32{0, 1, 2} {
			fillPattern()
			cons.Scroll(ScrollDirUp, lines)

			// Check that rows 1 to (height - lines) have been scrolled up
			var x, y, index uint32
			for y = 0; y < ch-lines; y++ {
				for x = 0; x < cw; x++ {
					expVal := uint16(((y + lines) << 8) | x)
					if fb[index] != expVal {
						t.Errorf("[spec %d] expected value at (%d, %d) to be %d; got %d", specIndex, x, y, expVal, fb[index])
						continue nextSpec
					}
					index++
				}
			}
		}
	})

	t.Run("down", func(t *testing.T) {
	nextSpec:
		for specIndex, lines := range []uint32{0, 1, 2} {
			fillPattern()
			cons.Scroll(ScrollDirDown, lines)

			// Check that rows lines to height have been scrolled down
			var x, y uint32
			index := lines * cw
			for y = lines; y < ch; y++ {
				for x = 0; x < cw; x++ {
					expVal := uint16(((y - lines) << 8) | x)
					if fb[index] != expVal {
						t.Errorf("[spec %d] expected value at (%d, %d) to be %d; got %d", specIndex, x, y, expVal, fb[index])
						continue nextSpec
					}
					index++
				}
			}
		}
	})

	t.Run("more lines than the console height", func(t *testing.T) {
		fillPattern()
		cons.Scroll(ScrollDirUp, ch+1)

		if fb[0] != 0 || fb[len(fb)-1] != uint16(((ch-1)<<8)|(cw-1)) {
			t.Fatal("expected scrolling past the console height to be a no-op")
		}
	})
}

func TestEgaWrite(t *testing.T) {
	fb := make([]uint16, 80*25)
	cons := newTestEga(fb, 80, 25)

	t.Run("off-screen", func(t *testing.T) {
		specs := []struct {
			x, y uint32
		}{
			{0, 1},
			{1, 0},
			{81, 25},
			{90, 24},
			{79, 30},
			{100, 100},
		}

	nextSpec:
		for specIndex, spec := range specs {
			for i := 0; i < len(fb); i++ {
				fb[i] = 0
			}

			cons.Write('!', Red, Black, spec.x, spec.y)

			for i := 0; i < len(fb); i++ {
				if got := fb[i]; got != 0 {
					t.Errorf("[spec %d] expected Write() with off-screen coords to be a no-op", specIndex)
					continue nextSpec
				}
			}
		}
	})

	t.Run("success", func(t *testing.T) {
		for i := 0; i < len(fb); i++ {
			fb[i] = 0
		}

		cons.Write('!', Red, Black, 1, 1)
		cons.Write('?', Green, Brown, 80, 25)

		if exp, got := uint16(Red)<<8|uint16('!'), fb[0]; got != exp {
			t.Errorf("expected call to Write() to set fb[0] to 0x%x; got 0x%x", exp, got)
		}

		if exp, got := (uint16(Brown)<<4|uint16(Green))<<8|uint16('?'), fb[len(fb)-1]; got != exp {
			t.Errorf("expected call to Write() to set the last cell to 0x%x; got 0x%x", exp, got)
		}
	})

	t.Run("colors outside the palette", func(t *testing.T) {
		cons.Write('x', 16, 200, 2, 1)

		if exp, got := uint16(LightGrey)<<8|uint16('x'), fb[1]; got != exp {
			t.Errorf("expected Write() to fall back to the default colors (0x%x); got 0x%x", exp, got)
		}
	})
}
