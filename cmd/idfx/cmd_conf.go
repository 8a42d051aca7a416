package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/gandalfthegui/idfx/internal/configure"
	"github.com/gandalfthegui/idfx/internal/idefix"
	"github.com/spf13/cobra"
)

var confFlags = []passthroughFlag{
	{name: "dir", nargs: 1},
	{name: "interactive", aliases: []string{"-i"}},
}

func (a *app) newConfCmd() *cobra.Command {
	var (
		dir         string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "conf [--dir DIR] [-i] [configure args...]",
		Short: "Configure a problem with cmake or configure.py",
		Long: `Configure an Idefix problem. Arguments not listed below are passed to the
configuration engine; with cmake, configure.py switches such as -mhd, -mpi,
-arch or -cxx are translated to the equivalent cmake definitions.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, ok, err := a.parsePassthrough(cmd, args, confFlags)
			if !ok {
				return err
			}
			return a.conf(cmd.Context(), dir, interactive, rest)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "target directory")
	f.BoolVarP(&interactive, "interactive", "i", false, "use ccmake over cmake (no effect with the python engine)")
	return cmd
}

func (a *app) conf(ctx context.Context, dir string, interactive bool, args []string) error {
	idefixDir, err := idefix.Dir()
	if err != nil {
		return err
	}
	target := a.abs(dir)
	if !isFile(filepath.Join(target, "setup.cpp")) {
		// cmake is happy to run in an empty directory, which only fails later
		return errors.New("Cannot configure a directory that doesn't contain a setup.cpp")
	}
	version, err := idefix.ReadVersion(idefixDir)
	if err != nil {
		return err
	}

	env := configure.Env{
		IdefixDir:  idefixDir,
		Version:    version,
		ConfigPath: a.cfg.Path(),
		Probe:      configure.SystemProbe(),
		Log:        a.log,
	}
	engine, warnings, err := env.SelectEngine(ctx, a.cfg.Option("idfx conf", "engine"))
	for _, w := range warnings {
		a.ui.Warning(w)
	}
	if err != nil {
		return err
	}

	defaults := configure.Defaults{
		CPU:      a.cfg.Option("compilation", "CPU"),
		GPU:      a.cfg.Option("compilation", "GPU"),
		Compiler: a.cfg.Option("compilation", "compiler"),
	}
	argv := env.Command(engine, interactive, args, defaults)
	a.ui.Launch(argv, dir)
	code, err := a.call(ctx, target, argv)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}
