//go:build windows

package run

import "os"

const signalSupported = false

func interrupt(p *os.Process) error { return ErrUnsupported }
