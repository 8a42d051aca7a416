package configure

import (
	"regexp"
	"slices"
	"strings"
)

// flagSubs maps configure.py switches to their CMake equivalent.
var flagSubs = map[string]string{
	"-mhd":    "-DIdefix_MHD=ON",
	"-mpi":    "-DIdefix_MPI=ON",
	"-debug":  "-DIdefix_DEBUG=ON",
	"-openmp": "-DKokkos_ENABLE_OPENMP=ON",
	"-gpu":    "-DKokkos_ENABLE_CUDA=ON",
}

var (
	archDefineRE = regexp.MustCompile(`^-D\s?Kokkos_ARCH_\w+=ON`)
	cxxDefineRE  = regexp.MustCompile(`^-DCMAKE_CXX_COMPILER=\w+`)
)

// Defaults are the [compilation] options from the user configuration,
// applied when the command line doesn't say otherwise.
type Defaults struct {
	CPU      string
	GPU      string
	Compiler string
}

// takeOption removes every occurrence of name from args along with its
// values and returns the remaining args and the collected values. With
// multi set, an occurrence consumes all following arguments up to the next
// one starting with '-'; otherwise it consumes exactly one.
func takeOption(args []string, name string, multi bool) ([]string, []string, bool) {
	var rest, values []string
	found := false
	for i := 0; i < len(args); i++ {
		if args[i] != name {
			rest = append(rest, args[i])
			continue
		}
		found = true
		for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			values = append(values, args[i])
			if !multi {
				break
			}
		}
	}
	return rest, values, found
}

func substituteArchs(args []string, d Defaults) []string {
	explicit := slices.Contains(args, "-arch") || slices.ContainsFunc(args, archDefineRE.MatchString)
	if !explicit {
		if d.CPU != "" {
			args = append(args, "-arch", d.CPU)
		}
		if d.GPU != "" {
			args = append(args, "-arch", d.GPU)
			if !slices.Contains(args, "-gpu") {
				args = append(args, "-gpu")
			}
		}
	}
	rest, archs, found := takeOption(args, "-arch", true)
	if !found {
		return args
	}
	for _, a := range archs {
		rest = append(rest, "-DKokkos_ARCH_"+strings.ToUpper(a)+"=ON")
	}
	return rest
}

func substituteFlags(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if sub, ok := flagSubs[a]; ok {
			out[i] = sub
		} else {
			out[i] = a
		}
	}
	return out
}

func substituteCXX(args []string, d Defaults) []string {
	explicit := slices.Contains(args, "-cxx") || slices.ContainsFunc(args, cxxDefineRE.MatchString)
	if !explicit && d.Compiler != "" {
		args = append(args, "-cxx", d.Compiler)
	}
	rest, values, found := takeOption(args, "-cxx", false)
	if !found || len(values) == 0 {
		return args
	}
	return append(rest, "-DCMAKE_CXX_COMPILER="+values[len(values)-1])
}

// SubstituteArgs translates configure.py style arguments into CMake
// definitions. Order matters: architectures first (a GPU default may add
// -gpu), then switches, then the compiler. Unknown arguments pass through.
func SubstituteArgs(args []string, d Defaults) []string {
	args = slices.Clone(args)
	args = substituteArchs(args, d)
	args = substituteFlags(args)
	args = substituteCXX(args, d)
	return args
}
