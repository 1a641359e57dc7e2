package stubgen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHasErrorCode(t *testing.T) {
	exp := map[int]bool{8: true, 10: true, 11: true, 12: true, 13: true, 14: true, 17: true, 21: true, 29: true, 30: true}

	for v := 0; v < VectorCount; v++ {
		if got := HasErrorCode(uint8(v)); got != exp[v] {
			t.Errorf("expected HasErrorCode(%d) to return %t; got %t", v, exp[v], got)
		}
	}
}

func TestClassify(t *testing.T) {
	specs := []struct {
		vector   uint8
		expClass Class
		expName  string
	}{
		{0, ClassException, "Divide Error"},
		{8, ClassException, "Double Fault"},
		{13, ClassException, "General Protection Fault"},
		{14, ClassException, "Page Fault"},
		{31, ClassException, "Reserved"},
		{32, ClassIRQ, "Hardware IRQ"},
		{47, ClassIRQ, "Hardware IRQ"},
		{48, ClassUnassigned, "Unassigned"},
		{0x80, ClassSyscall, "System Call"},
		{255, ClassUnassigned, "Unassigned"},
	}

	for specIndex, spec := range specs {
		if got := Classify(spec.vector); got != spec.expClass {
			t.Errorf("[spec %d] expected vector %d to be classified as %s; got %s", specIndex, spec.vector, spec.expClass, got)
		}
		if got := Name(spec.vector); got != spec.expName {
			t.Errorf("[spec %d] expected vector %d to be named %q; got %q", specIndex, spec.vector, spec.expName, got)
		}
	}

	if got := Class(42).String(); got != "invalid" {
		t.Errorf("expected an out of range class to print as %q; got %q", "invalid", got)
	}
}

func TestStubOps(t *testing.T) {
	withCode := []Op{
		{Kind: OpDisableInterrupts},
		{Kind: OpPushImm, Imm: 13},
		{Kind: OpJumpTrampoline},
	}
	if diff := cmp.Diff(withCode, StubFor(13).Ops()); diff != "" {
		t.Errorf("unexpected ops for vector 13 (-want +got):\n%s", diff)
	}

	withoutCode := []Op{
		{Kind: OpDisableInterrupts},
		{Kind: OpPushImm, Imm: 0},
		{Kind: OpPushImm, Imm: 32},
		{Kind: OpJumpTrampoline},
	}
	if diff := cmp.Diff(withoutCode, StubFor(32).Ops()); diff != "" {
		t.Errorf("unexpected ops for vector 32 (-want +got):\n%s", diff)
	}
}

func TestExecute(t *testing.T) {
	const (
		eflags = 0x202
		cs     = 0x08
		eip    = 0xc0101234
	)

	t.Run("vector with cpu error code", func(t *testing.T) {
		got := StubFor(13).Execute(eflags, cs, eip, 0x10)
		if diff := cmp.Diff([]uint32{13, 0x10, eip, cs, eflags}, got); diff != "" {
			t.Fatalf("unexpected trampoline frame (-want +got):\n%s", diff)
		}
	})

	t.Run("vector without cpu error code", func(t *testing.T) {
		got := StubFor(32).Execute(eflags, cs, eip, 0xdead)
		if diff := cmp.Diff([]uint32{32, 0, eip, cs, eflags}, got); diff != "" {
			t.Fatalf("unexpected trampoline frame (-want +got):\n%s", diff)
		}
	})

	t.Run("uniform frame for every vector", func(t *testing.T) {
		for _, s := range Stubs() {
			frame := s.Execute(eflags, cs, eip, 7)
			if len(frame) != 5 || frame[0] != uint32(s.Vector) || frame[2] != eip {
				t.Errorf("vector %d: unexpected frame %v", s.Vector, frame)
			}
		}
	})
}

func TestStubs(t *testing.T) {
	stubs := Stubs()
	if len(stubs) != VectorCount {
		t.Fatalf("expected %d stubs; got %d", VectorCount, len(stubs))
	}

	var placeholders int
	for v, s := range stubs {
		if int(s.Vector) != v {
			t.Fatalf("expected stub %d to handle vector %d; got %d", v, v, s.Vector)
		}
		if !s.ErrorCode {
			placeholders++
		}
	}

	if placeholders != VectorCount-len(errorCodeVectors) {
		t.Fatalf("expected %d stubs to push a placeholder error code; got %d", VectorCount-len(errorCodeVectors), placeholders)
	}

	if got := StubFor(200).Symbol(); got != "·vector200" {
		t.Fatalf("expected symbol ·vector200; got %s", got)
	}
}

func TestGateAttributes(t *testing.T) {
	for v := 0; v < VectorCount; v++ {
		exp := KernelGateAttributes
		if v == SyscallVector {
			exp = UserGateAttributes
		}

		if got := GateAttributes(uint8(v)); got != exp {
			t.Errorf("expected gate attributes for vector %d to be 0x%x; got 0x%x", v, exp, got)
		}
	}
}
