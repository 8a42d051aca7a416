package run

import (
	"errors"
	"fmt"
)

var (
	ErrTimesWithoutOne   = errors.New("the --times parameter is invalid if --one/--one-step isn't passed too")
	ErrMultipleMaxCycles = errors.New("-maxcycles cannot be combined with --one/--one-step")
	ErrOutWithoutMax     = errors.New("--out requires -maxcycles")
	ErrOutAndOneOutputs  = errors.New("--one-step/--one cannot be followed by output types if --out is also passed")
	ErrTimeout           = errors.New("idefix timed out (startup took more than a minute)")
)

// MalformedError reports an inifile using a section name as a parameter.
type MalformedError struct {
	Section string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("configuration file seems malformed, expected '%s' to be a section title, not a parameter name.", e.Section)
}

// NotConfiguredError is returned when the target directory has neither an
// executable nor a Makefile.
type NotConfiguredError struct {
	Dir string
}

func (e *NotConfiguredError) Error() string {
	return "No idefix executable or Makefile found in the target directory " + e.Dir
}

func (e *NotConfiguredError) Hint() string { return "Run `idfx conf` first" }

// ExitError carries the non-zero status of a child process.
type ExitError struct {
	Msg  string
	Code int
}

func (e *ExitError) Error() string { return e.Msg }

func (e *ExitError) ExitCode() int { return e.Code }
