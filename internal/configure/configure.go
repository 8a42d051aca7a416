// Package configure picks the configuration engine for an Idefix problem
// (cmake, or the configure.py script of legacy Idefix versions) and builds
// the command line to run it.
package configure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gandalfthegui/idfx/internal/idefix"
	"go.uber.org/zap"
)

// Engine is a configuration backend.
type Engine int

const (
	CMake Engine = iota + 1
	Python
)

func (e Engine) String() string {
	switch e {
	case CMake:
		return "cmake"
	case Python:
		return "python"
	default:
		return "unknown"
	}
}

// Minimal versions for the cmake engine.
var (
	MinCMake          = idefix.Version("3.16.0")
	MinIdefixForCMake = idefix.Version("0.9.0")
)

// EnvError reports an environment that can't run the requested engine.
type EnvError struct {
	Msg string
}

func (e *EnvError) Error() string { return e.Msg }

// Probe discovers external tools. Tests replace its functions.
type Probe struct {
	LookPath     func(file string) (string, error)
	CMakeVersion func(ctx context.Context) (string, error)
}

// SystemProbe looks tools up on PATH.
func SystemProbe() Probe {
	return Probe{
		LookPath: exec.LookPath,
		CMakeVersion: func(ctx context.Context) (string, error) {
			out, err := exec.CommandContext(ctx, "cmake", "--version").Output()
			return string(out), err
		},
	}
}

// Env describes the Idefix installation being configured.
type Env struct {
	IdefixDir  string
	Version    idefix.Version
	ConfigPath string // user configuration file, quoted in messages
	Probe      Probe
	Log        *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// ValidateCMake checks that cmake can configure this Idefix version. Non
// fatal findings are returned as warnings.
func (e Env) ValidateCMake(ctx context.Context) ([]string, error) {
	var problems, warnings []string

	if !e.Version.AtLeast(MinIdefixForCMake) {
		if _, err := os.Stat(filepath.Join(e.IdefixDir, "CMakeLists.txt")); err == nil {
			warnings = append(warnings, fmt.Sprintf(
				"looks like your version of Idefix predates %s, but already has cmake support. Results may be unstable.",
				MinIdefixForCMake))
		} else {
			problems = append(problems, fmt.Sprintf(
				"cmake setup requires idefix %s or newer, found %s", MinIdefixForCMake, e.Version))
		}
	}

	if _, err := e.Probe.LookPath("cmake"); err != nil {
		problems = append(problems, "couldn't find cmake executable")
	} else {
		out, err := e.Probe.CMakeVersion(ctx)
		v, ok := idefix.ParseVersion(out)
		switch {
		case err != nil || !ok:
			problems = append(problems, "couldn't parse result from `cmake --version`")
		case !v.AtLeast(MinCMake):
			problems = append(problems, fmt.Sprintf(
				"cmake setup requires cmake %s or newer, found %s", MinCMake, v))
		default:
			e.logger().Debug("found cmake", zap.String("version", v.String()))
		}
	}

	if len(problems) == 0 {
		return warnings, nil
	}
	msg := fmt.Sprintf("cmake is required from %s, but ", e.ConfigPath)
	if len(problems) == 1 {
		msg += problems[0]
	} else {
		msg += "\n- " + strings.Join(problems, "\n- ")
	}
	return warnings, &EnvError{Msg: msg}
}

// HasPython reports whether the tree ships the legacy configure.py.
func (e Env) HasPython() bool {
	_, err := os.Stat(e.configurePy())
	return err == nil
}

func (e Env) configurePy() string { return filepath.Join(e.IdefixDir, "configure.py") }

// ValidatePython checks that configure.py exists. required marks an engine
// explicitly chosen in the user configuration.
func (e Env) ValidatePython(required bool) error {
	if e.HasPython() {
		return nil
	}
	msg := "Running a version of Idefix that doesn't provide $IDEFIX_DIR/configure.py . "
	if required {
		msg += "This configuration engine was required from " + e.ConfigPath
	}
	return &EnvError{Msg: strings.TrimSpace(msg)}
}

// SelectEngine resolves the engine to use. requested is the [idfx conf]
// engine option; when empty, cmake is preferred over python.
func (e Env) SelectEngine(ctx context.Context, requested string) (Engine, []string, error) {
	switch requested {
	case "":
		warnings, err := e.ValidateCMake(ctx)
		if err == nil {
			return CMake, warnings, nil
		}
		e.logger().Debug("cmake engine unavailable", zap.Error(err))
		if e.HasPython() {
			return Python, nil, nil
		}
		return 0, nil, &EnvError{Msg: "Could not determine a working configuration engine. " +
			"Most likely, your version of Idefix requires CMake, which is currently not installed. " +
			"Please consult Idefix's documentation, or try to update idfx if it didn't help."}
	case "cmake":
		warnings, err := e.ValidateCMake(ctx)
		if err != nil {
			return 0, warnings, err
		}
		return CMake, warnings, nil
	case "python":
		if err := e.ValidatePython(true); err != nil {
			return 0, nil, err
		}
		return Python, nil, nil
	default:
		return 0, nil, &EnvError{Msg: fmt.Sprintf("Got unknown value engine=%q from %s, expected 'cmake' or 'python'",
			requested, e.ConfigPath)}
	}
}

// Command returns the argv configuring a problem with engine. Arguments are
// translated to CMake definitions for the cmake engine and passed verbatim
// to configure.py otherwise.
func (e Env) Command(engine Engine, interactive bool, args []string, d Defaults) []string {
	if engine == Python {
		return append([]string{"python3", e.configurePy()}, args...)
	}
	tool := "cmake"
	if interactive {
		tool = "ccmake"
	}
	return append([]string{tool, e.IdefixDir}, SubstituteArgs(args, d)...)
}
