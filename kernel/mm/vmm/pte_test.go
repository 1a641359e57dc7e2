package vmm

import (
	"testing"

	"github.com/Harthann/Yak/kernel/mm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var (
		pte   pageTableEntry
		flag1 = FlagRW
		flag2 = FlagGlobal
	)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatal("expected HasAnyFlag to return false")
	}

	pte.SetFlags(flag1 | flag2)

	if !pte.HasFlags(flag1 | flag2) {
		t.Fatal("expected HasFlags to return true")
	}

	pte.ClearFlags(flag1)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatal("expected HasAnyFlag to return true")
	}

	if pte.HasFlags(flag1 | flag2) {
		t.Fatal("expected HasFlags to return false")
	}
}

func TestPageTableEntryFrameEncoding(t *testing.T) {
	var (
		pte       pageTableEntry
		physFrame = mm.Frame(0x3ff)
	)

	pte.SetFlags(FlagPresent | FlagRW)
	pte.SetFrame(physFrame)

	if got := pte.Frame(); got != physFrame {
		t.Fatalf("expected pte.Frame() to return %d; got %d", physFrame, got)
	}

	if exp := uint32(0x3ff003); uint32(pte) != exp {
		t.Fatalf("expected encoded entry 0x%x; got 0x%x", exp, uint32(pte))
	}
}
