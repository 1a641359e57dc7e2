package stubgen

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "// Code generated by kbootctl genvectors. DO NOT EDIT.\n") {
		t.Fatal("expected output to start with the generated code marker")
	}

	if got := strings.Count(out, "\nTEXT "); got != VectorCount {
		t.Fatalf("expected %d stubs; got %d", VectorCount, got)
	}

	if got := strings.Count(out, "\nDATA ·stubTable+"); got != VectorCount {
		t.Fatalf("expected %d stub table entries; got %d", VectorCount, got)
	}

	// Every stub without a CPU-pushed error code pushes a zero placeholder;
	// vector 0 also pushes its own number as $0.
	placeholders := VectorCount - len(errorCodeVectors)
	if got := strings.Count(out, "\tPUSHL $0\n"); got != placeholders+1 {
		t.Fatalf("expected %d placeholder pushes; got %d", placeholders, got-1)
	}

	exp13 := "TEXT ·vector13(SB),NOSPLIT,$0\n\tCLI\n\tPUSHL $13\n\tJMP ·trampoline(SB)\n"
	if !strings.Contains(out, exp13) {
		t.Fatalf("expected output to contain:\n%s", exp13)
	}

	exp128 := "TEXT ·vector128(SB),NOSPLIT,$0\n\tCLI\n\tPUSHL $0\n\tPUSHL $128\n\tJMP ·trampoline(SB)\n"
	if !strings.Contains(out, exp128) {
		t.Fatalf("expected output to contain:\n%s", exp128)
	}

	if !strings.HasSuffix(out, "GLOBL ·stubTable(SB), RODATA|NOPTR, $1024\n") {
		t.Fatal("expected output to end with the stub table declaration")
	}
}

func TestRenderPlaceholdersPerStub(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf); err != nil {
		t.Fatal(err)
	}

	bodies := strings.Split(buf.String(), "\nTEXT ")[1:]
	if len(bodies) != VectorCount {
		t.Fatalf("expected %d stub bodies; got %d", VectorCount, len(bodies))
	}

	for vector, body := range bodies {
		body = body[:strings.Index(body, "\n\n")]

		pushes := strings.Count(body, "\tPUSHL ")
		expPushes := 2
		if HasErrorCode(uint8(vector)) {
			expPushes = 1
		}
		if pushes != expPushes {
			t.Errorf("vector %d: expected %d pushes; got %d", vector, expPushes, pushes)
		}

		if !strings.HasSuffix(body, "\tPUSHL $"+strconv.Itoa(vector)+"\n\tJMP ·trampoline(SB)") {
			t.Errorf("vector %d: expected the stub to push its vector last:\n%s", vector, body)
		}
	}
}

func TestRenderDecls(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDecls(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "// Code generated by kbootctl genvectors. DO NOT EDIT.\n\npackage gate\n") {
		t.Fatalf("unexpected declarations header:\n%s", out[:64])
	}

	// every TEXT symbol emitted by Render needs a Go prototype
	for _, s := range Stubs() {
		decl := "\nfunc " + strings.TrimPrefix(s.Symbol(), "·") + "()\n"
		if !strings.Contains(out, decl) {
			t.Errorf("missing declaration %q", strings.TrimSpace(decl))
		}
	}

	if got := strings.Count(out, "\nfunc "); got != VectorCount {
		t.Fatalf("expected %d declarations; got %d", VectorCount, got)
	}
}

func TestRenderMatchesCheckedInStubs(t *testing.T) {
	specs := []struct {
		file   string
		render func(io.Writer) error
	}{
		{"../vectors_386.s", Render},
		{"../vectors_386.go", RenderDecls},
	}

	for _, spec := range specs {
		checkedIn, err := os.ReadFile(spec.file)
		if err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := spec.render(&buf); err != nil {
			t.Fatal(err)
		}

		if diff := cmp.Diff(string(checkedIn), buf.String()); diff != "" {
			t.Errorf("%s is stale; run go generate ./kernel/gate (-checked in +rendered):\n%s", spec.file, diff)
		}
	}
}
