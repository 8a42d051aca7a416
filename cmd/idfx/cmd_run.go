package main

import (
	"context"
	"slices"

	"github.com/gandalfthegui/idfx/internal/idefix"
	"github.com/gandalfthegui/idfx/internal/run"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runFlags = []passthroughFlag{
	{name: "dir", nargs: 1},
	{name: "inifile", aliases: []string{"-i"}, nargs: 1},
	{name: "tstop", nargs: 1},
	{name: "time-step", nargs: 1},
	{name: "one", aliases: []string{"--one-step"}, nargs: nargsAny},
	{name: "out", nargs: nargsSome},
	{name: "nproc", nargs: 1},
	{name: "times", nargs: 1},
}

func (a *app) newRunCmd() *cobra.Command {
	opts := run.DefaultOptions()
	var (
		tstop, timeStep float64
		times           int
		oneStep         []string
	)
	cmd := &cobra.Command{
		Use:   "run [flags] [idefix args...]",
		Short: "Build (if needed) and run an Idefix problem",
		Long: `Run an Idefix problem, rebuilding it first according to the [idfx run]
recompile option ("always" or "prompt"). Arguments not listed below are
passed to idefix.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, ok, err := a.parsePassthrough(cmd, args, runFlags)
			if !ok {
				return err
			}
			f := cmd.Flags()
			opts.Tstop = changed(f, "tstop", &tstop)
			opts.TimeStep = changed(f, "time-step", &timeStep)
			opts.Times = changed(f, "times", &times)
			if f.Changed("one") {
				opts.OneStepSet = true
				opts.OneStep = slices.DeleteFunc(oneStep, func(s string) bool { return s == "" })
			}
			opts.Args = rest
			return a.runProblem(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Dir, "dir", opts.Dir, "target directory")
	f.StringVarP(&opts.Inifile, "inifile", "i", opts.Inifile, "target inifile")
	f.Float64Var(&tstop, "tstop", 0, "override TimeIntegrator.tstop")
	f.Float64Var(&timeStep, "time-step", 0, "override TimeIntegrator.first_dt")
	f.StringArrayVar(&oneStep, "one", nil,
		"run only for one time step (alias --one-step); values are output types (see --out)")
	f.StringArrayVar(&opts.Outputs, "out", nil,
		"output types (dmp, vtk, ...) to produce on each cycle (requires -maxcycles, cannot be combined with --one OUTPUT)")
	f.IntVar(&opts.NProc, "nproc", opts.NProc,
		"number of MPI processes; can be left unspecified if -dec is passed")
	f.IntVar(&times, "times", 1, "number of cycles for --one (deprecated, use -maxcycles)")
	return cmd
}

// changed returns v if the flag name was given, nil otherwise.
func changed[T any](f *pflag.FlagSet, name string, v *T) *T {
	if f.Changed(name) {
		return v
	}
	return nil
}

func (a *app) runProblem(ctx context.Context, opts run.Options) error {
	idefixDir, err := idefix.Dir()
	if err != nil {
		return err
	}
	version, err := idefix.ReadVersion(idefixDir)
	if err != nil {
		return err
	}
	r := &run.Runner{
		IdefixDir:  idefixDir,
		Version:    version,
		Recompile:  a.cfg.Option("idfx run", "recompile"),
		ConfigPath: a.cfg.Path(),
		Console:    a.ui,
		Stdin:      a.in,
		Stdout:     a.out,
		Stderr:     a.errOut,
		Log:        a.log,
	}
	return r.Run(ctx, a.cwd, opts)
}
