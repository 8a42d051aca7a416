//go:build !windows

package run

import (
	"os"
	"syscall"
)

const signalSupported = true

// interrupt asks Idefix to write a final dump and exit.
func interrupt(p *os.Process) error { return p.Signal(syscall.SIGUSR2) }
