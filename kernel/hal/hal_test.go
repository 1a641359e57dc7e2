package hal

import (
	"testing"
	"unsafe"

	"github.com/Harthann/Yak/device/tty"
	"github.com/Harthann/Yak/device/video/console"
	"github.com/Harthann/Yak/kernel/kfmt"
	"github.com/Harthann/Yak/multiboot"
)

func TestInitTerminal(t *testing.T) {
	origFbVirtAddr := fbVirtAddrFn
	defer func() {
		getFramebufferInfoFn = multiboot.GetFramebufferInfo
		fbVirtAddrFn = origFbVirtAddr
		egaConsole = console.Ega{}
		activeTerminal = tty.Vt{}
		kfmt.SetOutputSink(nil)
	}()

	specs := []struct {
		descr   string
		fbInfo  *multiboot.FramebufferInfo
		expErr  bool
		expW    uint32
		expH    uint32
		expPhys uintptr
	}{
		{"no framebuffer tag", nil, false, 80, 25, 0xb8000},
		{
			"EGA framebuffer",
			&multiboot.FramebufferInfo{PhysAddr: 0xb8000, Width: 40, Height: 25, Type: multiboot.FramebufferTypeEGA},
			false, 40, 25, 0xb8000,
		},
		{
			"RGB framebuffer",
			&multiboot.FramebufferInfo{PhysAddr: 0xfd000000, Width: 1024, Height: 768, Type: multiboot.FramebufferTypeRGB},
			true, 0, 0, 0,
		},
		{
			"EGA framebuffer above the boot mapping",
			&multiboot.FramebufferInfo{PhysAddr: 0x3fffff00, Width: 80, Height: 25, Type: multiboot.FramebufferTypeEGA},
			true, 0, 0, 0,
		},
	}

	fb := make([]uint16, 80*25)
	for specIndex, spec := range specs {
		egaConsole = console.Ega{}
		activeTerminal = tty.Vt{}
		kfmt.SetOutputSink(nil)

		fbInfo := spec.fbInfo
		getFramebufferInfoFn = func() *multiboot.FramebufferInfo { return fbInfo }

		var gotPhys uintptr
		fbVirtAddrFn = func(physAddr uintptr) uintptr {
			gotPhys = physAddr
			return uintptr(unsafe.Pointer(&fb[0]))
		}

		err := InitTerminal()
		if spec.expErr {
			if err == nil {
				t.Errorf("[spec %d] %s: expected an error", specIndex, spec.descr)
			}
			if kfmt.GetOutputSink() != nil {
				t.Errorf("[spec %d] %s: expected output to stay in the ring buffer", specIndex, spec.descr)
			}
			continue
		}

		if err != nil {
			t.Errorf("[spec %d] %s: unexpected error: %v", specIndex, spec.descr, err)
			continue
		}

		if gotPhys != spec.expPhys {
			t.Errorf("[spec %d] %s: expected framebuffer at 0x%x; got 0x%x", specIndex, spec.descr, spec.expPhys, gotPhys)
		}

		if w, h := ActiveTerminal().Dimensions(); w != spec.expW || h != spec.expH {
			t.Errorf("[spec %d] %s: expected terminal dimensions %dx%d; got %dx%d", specIndex, spec.descr, spec.expW, spec.expH, w, h)
		}

		if kfmt.GetOutputSink() != ActiveTerminal() {
			t.Errorf("[spec %d] %s: expected kfmt output to be redirected to the terminal", specIndex, spec.descr)
		}

		kfmt.Printf("ok")
		if got := byte(fb[0]); got != 'o' {
			t.Errorf("[spec %d] %s: expected kfmt output on the framebuffer; got %q", specIndex, spec.descr, got)
		}
	}
}
