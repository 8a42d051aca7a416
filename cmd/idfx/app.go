package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gandalfthegui/idfx/internal/config"
	"github.com/gandalfthegui/idfx/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every command needs. Tests build one around buffers and a
// temporary working directory.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	cwd    string

	logLevel string
	log      *zap.Logger
	cfg      *config.Config
	ui       *console
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut, log: zap.NewNop()}
}

// exitError ends the process with code. An empty message prints nothing,
// for tools that already reported their failure.
type exitError struct {
	code int
	msg  string
	hint string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }
func (e *exitError) Hint() string  { return e.hint }

func (a *app) initLogger() error {
	log, err := logging.New(a.errOut, a.logLevel)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// setup runs before every command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.initLogger(); err != nil {
		return err
	}
	cfg, err := config.Load(a.cwd)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debug("configuration", zap.String("path", cfg.Path()), zap.String("command", cmd.Name()))
	return nil
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "idfx",
		Short:             "A command line companion for Idefix",
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"diagnostic log level: debug, info, warn or error (default $"+logging.EnvLevel+" or "+logging.DefaultLevel+")")
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		a.newCleanCmd(),
		a.newCloneCmd(),
		a.newConfCmd(),
		a.newRunCmd(),
		a.newReadCmd(),
		a.newWriteCmd(),
		a.newStampCmd(),
		a.newDigestCmd(),
		a.newSwitchCmd(),
	)
	return root
}

// execute runs the command line and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	if a.cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(a.errOut, "idfx: %v\n", err)
			return 1
		}
		a.cwd = wd
	}
	a.ui = newConsole(a.in, a.out, a.errOut, a.cwd)

	root := a.newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return a.report(err)
	}
	return 0
}

// report prints err and picks the exit code it carries, 1 by default.
func (a *app) report(err error) int {
	code := 1
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		code = coder.ExitCode()
	}
	hint := ""
	var hinter interface{ Hint() string }
	if errors.As(err, &hinter) {
		hint = hinter.Hint()
	}
	if msg := err.Error(); msg != "" {
		a.ui.Error(msg, hint)
	}
	return code
}

// abs resolves path against the working directory.
func (a *app) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.cwd, path)
}

// call runs argv in dir with the app's stdio and returns its exit status.
func (a *app) call(ctx context.Context, dir string, argv []string) (int, error) {
	a.log.Debug("exec", zap.Strings("argv", argv), zap.String("dir", dir))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = a.in, a.out, a.errOut
	err := cmd.Run()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return 0, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
