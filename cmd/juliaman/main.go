package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"lab47.dev/juliaman/pkg/cmd"
	"lab47.dev/juliaman/pkg/config"
)

const Version = "0.1.0"

type globals struct {
	Root     string
	BinDir   string
	LogLevel string
	Config   string
	Help     bool
	Version  bool
}

// parseGlobals reads the options that come before the command name.
func parseGlobals(args []string) (*globals, []string, error) {
	var g globals

	fs := pflag.NewFlagSet("juliaman", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	fs.StringVar(&g.Root, "root", "", "install root (default /opt)")
	fs.StringVar(&g.BinDir, "bin-dir", "", "directory for launchers (default /usr/local/bin)")
	fs.StringVar(&g.LogLevel, "log-level", "", "trace, debug, info, warn or error")
	fs.StringVar(&g.Config, "config", "", "config file to read")
	fs.BoolVarP(&g.Help, "help", "h", false, "show usage")
	fs.BoolVarP(&g.Version, "version", "v", false, "show the version")

	err := fs.Parse(args)
	if err != nil {
		return nil, nil, err
	}

	rest := fs.Args()

	switch {
	case g.Version:
		rest = []string{"--version"}
	case g.Help:
		rest = append([]string{"--help"}, rest...)
	case len(rest) > 0 && rest[0] == "help":
		rest = append([]string{"--help"}, rest[1:]...)
	}

	return &g, rest, nil
}

func loadConfig(g *globals) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if g.Config != "" {
		cfg, err = config.LoadFile(g.Config)
	} else {
		cfg, err = config.LoadConfig()
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to load configuration")
	}

	if g.Root != "" {
		cfg.Root = g.Root
	}

	if g.BinDir != "" {
		cfg.BinDir = g.BinDir
	}

	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}

	return cfg, nil
}

func (a *app) commands() map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"install": func() (cli.Command, error) {
			return cmd.New(
				"install",
				"Install a version (latest, lts or a version number)",
				a.installF,
			), nil
		},
		"list": func() (cli.Command, error) {
			return cmd.New(
				"list",
				"List installed versions",
				a.listF,
			), nil
		},
		"uninstall": func() (cli.Command, error) {
			return cmd.New(
				"uninstall",
				"Remove an installed version",
				a.uninstallF,
			), nil
		},
		"default": func() (cli.Command, error) {
			return cmd.New(
				"default",
				"Make an installed version the default",
				a.defaultF,
			), nil
		},
		"current": func() (cli.Command, error) {
			return cmd.New(
				"current",
				"Print the default version",
				a.currentF,
			), nil
		},
		"available": func() (cli.Command, error) {
			return cmd.New(
				"available",
				"List versions available for download",
				a.availableF,
			), nil
		},
		"gc": func() (cli.Command, error) {
			return cmd.New(
				"gc",
				"Remove leftovers of interrupted installs",
				a.gcF,
			), nil
		},
		"env": func() (cli.Command, error) {
			return cmd.New(
				"env",
				"Output configuration and PATH information",
				a.envF,
			), nil
		},
		"debug": func() (cli.Command, error) {
			return cmd.New(
				"debug",
				"Debug various things",
				a.debugF,
			), nil
		},
	}
}

// run dispatches args, which no longer contain the global options.
func (a *app) run(args []string) int {
	if len(args) == 0 {
		return cmd.New("juliaman", "interactive menu", a.menuF).Run(nil)
	}

	c := cli.NewCLI("juliaman", Version)
	c.Args = args
	c.Commands = a.commands()

	exitStatus, err := c.Run()
	if err != nil {
		a.L.Error("error running command", "error", err)
	}

	// cli reports unknown commands with 127.
	if exitStatus == 127 {
		return 1
	}

	return exitStatus
}

func main() {
	g, rest, err := parseGlobals(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "! Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "! Error: %v\n", err)
		os.Exit(1)
	}

	L := hclog.New(&hclog.LoggerOptions{
		Name:   "juliaman",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
	})

	hclog.SetDefault(L)

	os.Exit(newApp(cfg, L).run(rest))
}
