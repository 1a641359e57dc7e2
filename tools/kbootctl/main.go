// Command kbootctl is the host side companion of the kernel: it generates the
// interrupt entry stubs, emits and checks the multiboot2 header, previews the
// boot page mapping, fills the runtime redirect table of a linked image and
// packages the kernel into a bootable ISO.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var (
	debug      = flag.Bool("debug", false, "enable debug logging.")
	configPath = flag.String("config", "", "path to a kboot.toml configuration file.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(genVectors), "kernel")
	subcommands.Register(new(vectors), "kernel")
	subcommands.Register(new(header), "image")
	subcommands.Register(new(pageMap), "image")
	subcommands.Register(new(redirects), "image")
	subcommands.Register(new(mkISO), "image")

	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}
	logrus.WithField("config", *configPath).Debugf("configuration: %+v", *cfg)

	os.Exit(int(subcommands.Execute(context.Background(), cfg)))
}

// configFrom extracts the configuration passed to subcommands.Execute.
func configFrom(args []interface{}) *Config {
	if len(args) == 1 {
		if cfg, ok := args[0].(*Config); ok {
			return cfg
		}
	}
	return DefaultConfig()
}
