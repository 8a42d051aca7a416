package run

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/gandalfthegui/idfx/internal/idefix"
)

// MaxCyclesVersion is the first Idefix release accepting -maxcycles.
const MaxCyclesVersion idefix.Version = "1.0.0"

// Options are the run command's arguments.
type Options struct {
	Dir     string
	Inifile string
	Tstop   *float64
	// TimeStep overrides TimeIntegrator.first_dt.
	TimeStep *float64
	// OneStep is set by --one/--one-step; its values are output types.
	OneStep    []string
	OneStepSet bool
	// Outputs are the --out output types.
	Outputs []string
	// NProc is the MPI process count; negative means unspecified.
	NProc int
	// Times is the --times cycle count.
	Times *int
	// Args are forwarded to the simulator.
	Args []string
}

// DefaultOptions match the command line defaults.
func DefaultOptions() Options {
	return Options{Dir: ".", Inifile: "idefix.ini", NProc: -1}
}

// Cycles is the outcome of cycle-count resolution.
type Cycles struct {
	// Args are the forwarded arguments, with -maxcycles prepended when the
	// simulator supports it.
	Args []string
	// Legacy is the cycle count to enforce by log monitoring, or -1.
	Legacy int
	// Deprecated is set when --times was used where -maxcycles would do.
	Deprecated bool
}

// ResolveCycles validates --one/--times and translates them for the given
// Idefix version.
func ResolveCycles(opts Options, version idefix.Version) (Cycles, error) {
	args := slices.Clone(opts.Args)
	if !opts.OneStepSet {
		if opts.Times != nil {
			return Cycles{}, ErrTimesWithoutOne
		}
		return Cycles{Args: args, Legacy: -1}, nil
	}

	n := 1
	if opts.Times != nil {
		n = *opts.Times
		if n < 1 {
			return Cycles{}, fmt.Errorf("the --times parameter expects a strictly positive integer (got %d)", n)
		}
	}
	if slices.Contains(args, "-maxcycles") {
		return Cycles{}, ErrMultipleMaxCycles
	}
	if version.AtLeast(MaxCyclesVersion) {
		return Cycles{
			Args:       append([]string{"-maxcycles", strconv.Itoa(n)}, args...),
			Legacy:     -1,
			Deprecated: n != 1,
		}, nil
	}
	return Cycles{Args: args, Legacy: n}, nil
}

// NProcFromDec infers the process count from a -dec domain decomposition,
// the product of the integers following it.
func NProcFromDec(args []string) (int, bool) {
	i := slices.Index(args, "-dec")
	if i < 0 {
		return 0, false
	}
	n, found := 1, false
	for _, a := range args[i+1:] {
		v, err := strconv.Atoi(a)
		if err != nil {
			break
		}
		n *= v
		found = true
	}
	return n, found
}

// Command returns the argv running the simulator on input, prefixed by
// mpirun when more than one process is requested.
func Command(input string, nproc int, args []string) []string {
	cmd := append([]string{"./idefix", "-i", input}, args...)
	if nproc > 1 {
		cmd = append([]string{"mpirun", "-n", strconv.Itoa(nproc)}, cmd...)
	}
	return cmd
}
