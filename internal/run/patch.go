package run

import (
	"errors"
	"slices"

	"github.com/gandalfthegui/idfx/internal/inifile"
)

// DefaultFirstDT is the initial time step used for output runs when neither
// the inifile nor the command line set one.
const DefaultFirstDT = 1e-6

func ensureSection(doc *inifile.Document, name string) (*inifile.Section, error) {
	s, err := doc.EnsureSection(name)
	if errors.Is(err, inifile.ErrNotSection) {
		return nil, &MalformedError{Section: name}
	}
	return s, err
}

// Patch applies the time and output overrides of opts to doc. args are the
// arguments forwarded to the simulator, after cycle resolution.
func Patch(doc *inifile.Document, opts Options, args []string) error {
	ti, err := ensureSection(doc, "TimeIntegrator")
	if err != nil {
		return err
	}

	outputs := opts.Outputs
	if len(outputs) > 0 && !slices.Contains(args, "-maxcycles") {
		return ErrOutWithoutMax
	}
	if len(outputs) > 0 && len(opts.OneStep) > 0 {
		return ErrOutAndOneOutputs
	}
	if len(opts.OneStep) > 0 {
		outputs = opts.OneStep
	}

	var firstDT any
	if opts.TimeStep != nil {
		firstDT = *opts.TimeStep
	}
	if len(outputs) > 0 {
		if firstDT == nil {
			if firstDT, err = ti.SetDefault("first_dt", DefaultFirstDT); err != nil {
				return err
			}
		}
		out, err := ensureSection(doc, "Output")
		if err != nil {
			return err
		}
		if err := out.Set("log", 1); err != nil {
			return err
		}
		seen := map[string]bool{"log": true}
		for _, o := range outputs {
			if seen[o] {
				continue
			}
			seen[o] = true
			if err := out.Set(o, 0); err != nil {
				return err
			}
		}
	}

	if firstDT != nil {
		if err := ti.Set("first_dt", firstDT); err != nil {
			return err
		}
	}
	if opts.Tstop != nil {
		if err := ti.Set("tstop", *opts.Tstop); err != nil {
			return err
		}
	}
	return nil
}
