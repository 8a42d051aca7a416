// Package run builds and runs Idefix problems: it decides whether the
// executable is fresh, patches the inifile for short runs, launches the
// simulator (optionally through mpirun) and interprets how it ended.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gandalfthegui/idfx/internal/idefix"
	"github.com/gandalfthegui/idfx/internal/inifile"
	"go.uber.org/zap"
)

// RebuildMode is the [idfx run] recompile option.
type RebuildMode string

const (
	RebuildAlways RebuildMode = "always"
	RebuildPrompt RebuildMode = "prompt"
)

// ParseRebuildMode maps an option value to a mode; empty means always.
func ParseRebuildMode(s string) (RebuildMode, bool) {
	switch RebuildMode(s) {
	case "", RebuildAlways:
		return RebuildAlways, true
	case RebuildPrompt:
		return RebuildPrompt, true
	default:
		return RebuildPrompt, false
	}
}

var (
	// KnownSuccess are the last log lines of a successful run.
	KnownSuccess = []string{
		"Main: Job completed successfully.",
		"Main: Job's done",
	}
	// KnownFailure are the last log lines of a failed run.
	KnownFailure = []string{
		"Main: Job was interrupted before completion.",
		"Main: Job was aborted because of an unrecoverable error.",
	}
)

// Console receives the messages meant for the user.
type Console interface {
	Warning(msg string)
	Success(msg string)
	// Launch announces argv about to run in dir.
	Launch(argv []string, dir string)
	// Confirm asks a yes/no question.
	Confirm(question string) bool
}

// Runner runs problems against one Idefix installation.
type Runner struct {
	IdefixDir string
	Version   idefix.Version
	// Recompile is the raw [idfx run] recompile option.
	Recompile  string
	ConfigPath string

	Console Console
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Log     *zap.Logger

	// BuildCommand defaults to BuildCommand().
	BuildCommand []string
	// StartupTimeout and PollInterval tune the legacy monitor.
	StartupTimeout time.Duration
	PollInterval   time.Duration
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Runner) command(ctx context.Context, dir string, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = r.Stdin, r.Stdout, r.Stderr
	return cmd
}

// call runs argv in dir and returns its exit status.
func (r *Runner) call(ctx context.Context, dir string, argv []string) (int, error) {
	r.logger().Debug("exec", zap.Strings("argv", argv), zap.String("dir", dir))
	return exitCode(r.command(ctx, dir, argv).Run())
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// FindInifile resolves name against cwd, then against dir.
func FindInifile(name, cwd, dir string) (string, error) {
	if filepath.IsAbs(name) {
		if isFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("could not find inifile %s", name)
	}
	for _, loc := range []string{cwd, dir} {
		p, err := filepath.Abs(filepath.Join(loc, name))
		if err != nil {
			return "", err
		}
		if isFile(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find inifile %s", name)
}

// needsBuild applies the rebuild mode to the problem in dir.
func (r *Runner) needsBuild(ctx context.Context, dir string) (bool, error) {
	mode, ok := ParseRebuildMode(r.Recompile)
	if !ok {
		r.Console.Warning(fmt.Sprintf("Expected [idfx run].recompile to be any of ['always', 'prompt']. Got '%s' from %s",
			r.Recompile, r.ConfigPath))
		r.Console.Warning("Falling back to 'prompt' mode.")
	}
	if mode == RebuildAlways {
		return true, nil
	}

	exe, err := os.Stat(filepath.Join(dir, "idefix"))
	if err != nil {
		r.logger().Debug("no executable yet, building", zap.Error(err))
		return true, nil
	}
	stale, err := StaleSources(ctx, dir, r.IdefixDir, exe.ModTime(), r.logger())
	if err != nil {
		return false, err
	}
	if len(stale) == 0 {
		return false, nil
	}
	r.Console.Warning("The following files were updated since last successful compilation:")
	fmt.Fprintln(r.Stderr, strings.Join(stale, "\n"))
	return r.Console.Confirm("Would you like to rebuild before running the program ?"), nil
}

// Build compiles the problem in dir.
func (r *Runner) Build(ctx context.Context, dir string) error {
	argv := r.BuildCommand
	if len(argv) == 0 {
		argv = BuildCommand()
	}
	r.Console.Launch(argv, dir)
	code, err := r.call(ctx, dir, argv)
	if err != nil {
		return fmt.Errorf("failed to build idefix: %w", err)
	}
	if code != 0 {
		return &ExitError{Msg: "failed to build idefix", Code: code}
	}
	return nil
}

// writeTemp dumps doc to a temporary inifile and returns its path.
func writeTemp(doc *inifile.Document) (string, error) {
	f, err := os.CreateTemp("", "idfx-*.ini")
	if err != nil {
		return "", err
	}
	if err := inifile.Dump(f, doc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Run executes the run command in cwd. A nil error means success.
func (r *Runner) Run(ctx context.Context, cwd string, opts Options) error {
	log := r.logger()
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}

	cycles, err := ResolveCycles(opts, r.Version)
	if err != nil {
		return err
	}
	if cycles.Deprecated {
		r.Console.Warning("the --times option is deprecated. Use idefix's -maxcycles argument instead.")
	}

	dir := opts.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}
	dir = filepath.Clean(dir)
	if !isFile(filepath.Join(dir, "idefix")) && !isFile(filepath.Join(dir, "Makefile")) {
		return &NotConfiguredError{Dir: dir}
	}

	inifilePath, err := FindInifile(opts.Inifile, cwd, dir)
	if err != nil {
		return err
	}
	base, err := inifile.LoadFile(inifilePath)
	if err != nil {
		return err
	}
	conf := base.Clone()
	if err := Patch(conf, opts, cycles.Args); err != nil {
		return err
	}

	build, err := r.needsBuild(ctx, dir)
	if err != nil {
		return err
	}
	if build {
		if err := r.Build(ctx, dir); err != nil {
			return err
		}
	}

	input := inifilePath
	if !conf.Equal(base) {
		tmp, err := writeTemp(conf)
		if err != nil {
			return fmt.Errorf("write patched inifile: %w", err)
		}
		defer os.Remove(tmp)
		log.Debug("patched inifile", zap.String("path", tmp))
		input = tmp
	} else if rel, err := filepath.Rel(dir, inifilePath); err == nil {
		input = rel
	}

	nproc := opts.NProc
	if nproc < 0 && slices.Contains(cycles.Args, "-dec") {
		if n, ok := NProcFromDec(cycles.Args); ok {
			nproc = n
		} else {
			r.Console.Warning("Couldn't parse -dec parameters, " +
				"this will likely result in idefix crashing at startup time " +
				"(if it doesn't, please report this)")
		}
	}
	argv := Command(input, nproc, cycles.Args)
	r.Console.Launch(argv, dir)

	var code int
	if r.Version.AtLeast(MaxCyclesVersion) {
		code, err = r.runModern(ctx, dir, argv)
	} else {
		code, err = r.runLegacy(ctx, dir, argv, cycles.Legacy)
	}
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Msg: argv[0] + " terminated with an error", Code: code}
	}
	return nil
}

func logStamp(path string) (time.Time, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return fi.ModTime(), true
}

func lastLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// runModern runs Idefix >= 1.0, which exits with 0 even on failure, so its
// main log has the last word.
func (r *Runner) runModern(ctx context.Context, dir string, argv []string) (int, error) {
	logPath := filepath.Join(dir, MainLogFile)
	before, existed := logStamp(logPath)

	code, err := r.call(ctx, dir, argv)
	if err != nil || code != 0 {
		return code, err
	}
	after, exists := logStamp(logPath)
	if !exists || (existed && !after.After(before)) {
		// -nolog and -nowrite are legit: nothing to judge from.
		return 0, nil
	}
	last, err := lastLine(logPath)
	if err != nil {
		return 0, err
	}
	switch {
	case slices.Contains(KnownFailure, last):
		return 1, nil
	case !slices.Contains(KnownSuccess, last):
		r.Console.Warning("Command completed with an unknown status. Please check log files.")
	}
	return 0, nil
}

// runLegacy runs Idefix < 1.0, stopping it after target cycles when
// target is positive.
func (r *Runner) runLegacy(ctx context.Context, dir string, argv []string, target int) (int, error) {
	if target < 0 {
		return r.call(ctx, dir, argv)
	}
	m := &Monitor{
		Dir:            dir,
		Target:         target,
		StartupTimeout: r.StartupTimeout,
		PollInterval:   r.PollInterval,
		Log:            r.logger(),
	}
	outcome, code, err := m.Watch(ctx, r.command(ctx, dir, argv))
	if errors.Is(err, ErrUnsupported) {
		return 0, &ExitError{Msg: err.Error(), Code: 1}
	}
	if err != nil {
		return 0, err
	}
	r.logger().Debug("legacy run ended", zap.Stringer("outcome", outcome), zap.Int("code", code))
	switch outcome {
	case Stopped:
		r.Console.Success("Successfully stopped idefix mid-air")
	case TimedOut:
		return 0, ErrTimeout
	}
	return code, nil
}
