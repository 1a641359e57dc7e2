package gate

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var textSymbol = regexp.MustCompile(`(?m)^TEXT ·(\w+)\(SB\)`)

// Every function defined in assembly needs a bodyless Go declaration or the
// linker cannot find its argument stack map.
func TestAssemblyFunctionsDeclared(t *testing.T) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(fi os.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, 0)
	if err != nil {
		t.Fatal(err)
	}

	declared := make(map[string]bool)
	for _, f := range pkgs["gate"].Files {
		for _, d := range f.Decls {
			if fn, ok := d.(*ast.FuncDecl); ok && fn.Body == nil && fn.Recv == nil {
				declared[fn.Name.Name] = true
			}
		}
	}

	asmFiles, err := filepath.Glob("*.s")
	if err != nil {
		t.Fatal(err)
	}

	var count int
	for _, asmFile := range asmFiles {
		src, err := os.ReadFile(asmFile)
		if err != nil {
			t.Fatal(err)
		}

		for _, m := range textSymbol.FindAllStringSubmatch(string(src), -1) {
			count++
			if !declared[m[1]] {
				t.Errorf("%s: %s has no Go declaration", asmFile, m[1])
			}
		}
	}

	// 256 stubs plus loadIDT, stubAddress and trampoline
	if exp := 256 + 3; count != exp {
		t.Fatalf("expected %d assembly functions; got %d", exp, count)
	}
}

// The trampoline must hand every interrupted data selector back unchanged:
// DS, ES and FS are saved separately and popped in reverse order, and the
// frame passed to dispatch starts at the saved DS.
func TestTrampolineRestoresSegments(t *testing.T) {
	src, err := os.ReadFile("gate_386.s")
	if err != nil {
		t.Fatal(err)
	}

	body := string(src)
	start := strings.Index(body, "TEXT ·trampoline(SB)")
	if start < 0 {
		t.Fatal("trampoline not found")
	}
	body = body[start:]
	body = body[:strings.Index(body, "IRETL")]

	var (
		lines    []string
		saves    []string
		restores []string
		called   bool
	)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		lines = append(lines, line)

		switch {
		case line == "CALL ·dispatch(SB)":
			called = true
		case !called && strings.HasPrefix(line, "MOVW ") && strings.HasSuffix(line, ", AX"):
			saves = append(saves, strings.TrimSuffix(strings.TrimPrefix(line, "MOVW "), ", AX"))
		case called && strings.HasPrefix(line, "MOVW AX, "):
			restores = append(restores, strings.TrimPrefix(line, "MOVW AX, "))
			if prev := lines[len(lines)-2]; prev != "POPL AX" {
				t.Errorf("expected %q to follow POPL AX; got %q", line, prev)
			}
		}
	}

	if exp := []string{"DS", "ES", "FS"}; !cmp.Equal(exp, saves) {
		t.Errorf("expected saved selectors %v; got %v", exp, saves)
	}
	if exp := []string{"FS", "ES", "DS"}; !cmp.Equal(exp, restores) {
		t.Errorf("expected restored selectors %v; got %v", exp, restores)
	}
	if !strings.Contains(body, "LEAL 8(SP), AX\n\tPUSHL AX\n\tCALL ·dispatch(SB)") {
		t.Error("expected dispatch to receive the frame starting at the saved DS")
	}
}
