package run

import (
	"math/bits"
	"runtime"
	"strconv"
)

// MaxBuildJobs caps make's parallelism.
const MaxBuildJobs = 8

func highestPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// BuildJobs is the number of make jobs for a machine with cpus CPUs.
func BuildJobs(cpus int) int {
	return min(MaxBuildJobs, highestPowerOfTwo(cpus))
}

// BuildCommand returns the make invocation for this machine.
func BuildCommand() []string {
	return []string{"make", "-j", strconv.Itoa(BuildJobs(runtime.NumCPU()))}
}
