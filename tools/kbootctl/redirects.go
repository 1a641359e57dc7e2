package main

import (
	"bufio"
	"context"
	"debug/elf"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

const (
	// redirectTableSymbol is the data symbol rt0 reads the redirects from.
	redirectTableSymbol = "main.redirectTable"

	// redirectMagic marks a table rt0 may trust.
	redirectMagic = uint32(0x52444952)

	// maxRedirects is the capacity of the table reserved by rt0.
	maxRedirects = 32
)

// redirects implements subcommands.Command for the "redirects" command.
type redirects struct {
	root string
}

// Name implements subcommands.Command.
func (*redirects) Name() string {
	return "redirects"
}

// Synopsis implements subcommands.Command.
func (*redirects) Synopsis() string {
	return "counts the go:redirect-from annotations or writes them into a linked kernel"
}

// Usage implements subcommands.Command.
func (*redirects) Usage() string {
	return `redirects [-root dir] count
redirects [-root dir] populate-table kernel.bin
`
}

// SetFlags implements subcommands.Command.
func (r *redirects) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.root, "root", ".", "module root containing go.mod and the kernel sources.")
}

// Execute implements subcommands.Command.
func (r *redirects) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var imgFile string
	switch {
	case f.NArg() == 1 && f.Arg(0) == "count":
	case f.NArg() == 2 && f.Arg(0) == "populate-table":
		imgFile = f.Arg(1)
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}

	list, err := findRedirects(r.root)
	if err != nil {
		logrus.WithError(err).Error("collecting redirects")
		return subcommands.ExitFailure
	}

	if imgFile == "" {
		fmt.Printf("%d\n", len(list))
		return subcommands.ExitSuccess
	}

	if err := populateTable(imgFile, list); err != nil {
		logrus.WithError(err).Error("populating redirect table")
		return subcommands.ExitFailure
	}

	for _, rd := range list {
		logrus.WithFields(logrus.Fields{
			"src": fmt.Sprintf("%s@0x%x", rd.src, rd.srcVMA),
			"dst": fmt.Sprintf("%s@0x%x", rd.dst, rd.dstVMA),
		}).Debug("redirect")
	}
	return subcommands.ExitSuccess
}

type redirect struct {
	src string
	dst string

	srcVMA uint64
	dstVMA uint64
}

// modulePath returns the module path declared by the go.mod in root.
func modulePath(root string) (string, error) {
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 2 && fields[0] == "module" {
			return strings.Trim(fields[1], `"`), nil
		}
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return "", errors.New("go.mod has no module directive")
}

func collectGoFiles(root string) ([]string, error) {
	var goFiles []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go") {
			goFiles = append(goFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return goFiles, nil
}

// findRedirects scans the kernel sources below root for functions annotated
// with //go:redirect-from and returns them in source order.
func findRedirects(root string) ([]*redirect, error) {
	prefix, err := modulePath(root)
	if err != nil {
		return nil, err
	}

	goFiles, err := collectGoFiles(filepath.Join(root, "kernel"))
	if err != nil {
		return nil, err
	}

	var list []*redirect
	for _, goFile := range goFiles {
		fset := token.NewFileSet()

		f, err := parser.ParseFile(fset, goFile, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", goFile, err)
		}

		rel, err := filepath.Rel(root, filepath.Dir(goFile))
		if err != nil {
			return nil, err
		}

		for _, decl := range f.Decls {
			fnDecl, ok := decl.(*ast.FuncDecl)
			if !ok || fnDecl.Doc == nil || fnDecl.Recv != nil {
				continue
			}

			for _, comment := range fnDecl.Doc.List {
				if !strings.Contains(comment.Text, "go:redirect-from") {
					continue
				}

				// build qualified name to fn
				fqName := fmt.Sprintf("%s/%s.%s", prefix, filepath.ToSlash(rel), fnDecl.Name)

				fields := strings.Fields(comment.Text)
				if len(fields) != 2 || fields[0] != "//go:redirect-from" {
					return nil, fmt.Errorf("%s: malformed go:redirect-from syntax for %q", fset.Position(comment.Pos()), fqName)
				}

				list = append(list, &redirect{
					src: fields[1],
					dst: fqName,
				})
			}
		}
	}

	if len(list) > maxRedirects {
		return nil, fmt.Errorf("found %d redirects; the table holds %d", len(list), maxRedirects)
	}

	return list, nil
}

// populateTable resolves the redirect symbols in imgFile and writes the
// table rt0 applies before entering the kernel.
func populateTable(imgFile string, list []*redirect) error {
	ef, err := elf.Open(imgFile)
	if err != nil {
		return err
	}

	offset, err := resolveRedirects(ef, list)
	ef.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", imgFile, err)
	}

	f, err := os.OpenFile(imgFile, os.O_WRONLY, 0)
	if err != nil {
		return err
	}

	if _, err := f.WriteAt(encodeTable(list), offset); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolveRedirects fills the addresses of list and returns the file offset
// of the redirect table.
func resolveRedirects(ef *elf.File, list []*redirect) (int64, error) {
	symbols, err := ef.Symbols()
	if err != nil {
		return 0, err
	}

	byName := make(map[string]elf.Symbol, len(symbols))
	for _, symbol := range symbols {
		byName[symbol.Name] = symbol
	}

	for _, rd := range list {
		src, ok := byName[rd.src]
		if !ok || src.Value == 0 {
			return 0, fmt.Errorf("could not locate address of %q", rd.src)
		}
		dst, ok := byName[rd.dst]
		if !ok || dst.Value == 0 {
			return 0, fmt.Errorf("could not locate address of %q", rd.dst)
		}
		rd.srcVMA, rd.dstVMA = src.Value, dst.Value
	}

	table, ok := byName[redirectTableSymbol]
	if !ok || int(table.Section) >= len(ef.Sections) {
		return 0, fmt.Errorf("missing %s symbol", redirectTableSymbol)
	}

	section := ef.Sections[table.Section]
	if section.Type == elf.SHT_NOBITS || table.Value < section.Addr || table.Value+table.Size > section.Addr+section.Size {
		return 0, fmt.Errorf("%s is not backed by file contents", redirectTableSymbol)
	}

	return int64(table.Value - section.Addr + section.Offset), nil
}

// encodeTable returns the table image: magic, count and one 32-bit
// (src, dst) pair per redirect.
func encodeTable(list []*redirect) []byte {
	buf := make([]byte, 8+8*len(list))
	binary.LittleEndian.PutUint32(buf[0:], redirectMagic)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(list)))
	for i, rd := range list {
		binary.LittleEndian.PutUint32(buf[8+8*i:], uint32(rd.srcVMA))
		binary.LittleEndian.PutUint32(buf[12+8*i:], uint32(rd.dstVMA))
	}
	return buf
}
