package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Harthann/Yak/kernel/gate/stubgen"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// genVectors implements subcommands.Command for the "genvectors" command.
type genVectors struct {
	output string
	decls  string
	check  bool
}

// Name implements subcommands.Command.
func (*genVectors) Name() string {
	return "genvectors"
}

// Synopsis implements subcommands.Command.
func (*genVectors) Synopsis() string {
	return "generates the interrupt entry stubs of the gate package"
}

// Usage implements subcommands.Command.
func (*genVectors) Usage() string {
	return `genvectors [-o vectors_386.s] [-go vectors_386.go] [-check]
`
}

// SetFlags implements subcommands.Command.
func (g *genVectors) SetFlags(f *flag.FlagSet) {
	f.StringVar(&g.output, "o", "", "assembly output file; stdout if empty.")
	f.StringVar(&g.decls, "go", "", "output file for the Go declarations of the stubs.")
	f.BoolVar(&g.check, "check", false, "fail if the output files differ from the generated sources instead of writing them.")
}

// Execute implements subcommands.Command.
func (g *genVectors) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || (g.check && g.output == "") {
		f.Usage()
		return subcommands.ExitUsageError
	}

	if err := generate(g.sources(), g.check); err != nil {
		logrus.WithError(err).Error("genvectors")
		return subcommands.ExitFailure
	}

	logrus.WithField("stubs", stubgen.VectorCount).Debug("stubs generated")
	return subcommands.ExitSuccess
}

// generatedSource is a file produced by genvectors.
type generatedSource struct {
	path   string
	render func(io.Writer) error
}

// sources returns the files selected by the flags. The assembly is always
// produced; the declarations only when -go is set.
func (g *genVectors) sources() []generatedSource {
	srcs := []generatedSource{{g.output, stubgen.Render}}
	if g.decls != "" {
		srcs = append(srcs, generatedSource{g.decls, stubgen.RenderDecls})
	}
	return srcs
}

// generate renders every source and writes or checks it.
func generate(srcs []generatedSource, check bool) error {
	for _, src := range srcs {
		var buf bytes.Buffer
		if err := src.render(&buf); err != nil {
			return fmt.Errorf("rendering %s: %w", src.path, err)
		}

		if err := writeGenerated(src.path, buf.Bytes(), check); err != nil {
			return err
		}
	}
	return nil
}

// writeGenerated writes data to path, or to stdout if path is empty. With
// check set, path is compared against data instead.
func writeGenerated(path string, data []byte, check bool) error {
	switch {
	case path == "":
		_, err := os.Stdout.Write(data)
		return err
	case check:
		existing, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !bytes.Equal(existing, data) {
			return fmt.Errorf("%s is out of date; run go generate", path)
		}
		return nil
	default:
		return os.WriteFile(path, data, 0644)
	}
}
