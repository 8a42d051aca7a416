package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// MainLogFile is the log written by the rank 0 process.
const MainLogFile = "idefix.0.log"

var (
	timeIntegratorRE = regexp.MustCompile(`^TimeIntegrator:\s*(?P<time>.+) \|\s*(?P<cycle>\d+) \|`)
	jobCompletedRE   = regexp.MustCompile(`^Main: Job completed`)
)

// Outcome is how a monitored run ended.
type Outcome int

const (
	// Exited means the process ended before reaching its target.
	Exited Outcome = iota
	// Stopped means the target cycle was reached and the process was
	// signalled to stop.
	Stopped
	// Completed means the simulation reported its own completion first.
	Completed
	// TimedOut means the main log never appeared.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Exited:
		return "exited"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// ErrUnsupported is returned by Watch on platforms without SIGUSR2.
var ErrUnsupported = errors.New("idfx run --one isn't supported on Windows")

// Monitor stops a legacy Idefix (< 1.0, which lacks -maxcycles) after a
// given number of cycles by following its main log and sending SIGUSR2.
type Monitor struct {
	// Dir is the directory the simulation writes MainLogFile to.
	Dir string
	// Target is the cycle number to stop at.
	Target int
	// StartupTimeout bounds the wait for MainLogFile to appear.
	StartupTimeout time.Duration
	// PollInterval is the fallback polling period used alongside fsnotify.
	PollInterval time.Duration
	Log          *zap.Logger
}

// tail reads complete lines appended to a file since the last call.
type tail struct {
	path    string
	f       *os.File
	offset  int64
	partial []byte
}

func (t *tail) close() {
	if t.f != nil {
		t.f.Close()
	}
}

// lines returns the new complete lines, or nil when the file doesn't exist
// yet.
func (t *tail) lines() ([]string, error) {
	if t.f == nil {
		f, err := os.Open(t.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		t.f = f
	}
	info, err := t.f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	size := info.Size()
	if size < t.offset {
		t.offset, t.partial = 0, nil
	}
	if size <= t.offset {
		return nil, nil
	}
	if _, err := t.f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log: %w", err)
	}
	buf := make([]byte, size-t.offset)
	n, err := io.ReadFull(t.f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read log: %w", err)
	}
	t.offset += int64(n)

	data := append(t.partial, buf[:n]...)
	var out []string
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		out = append(out, string(bytes.TrimRight(data[:i], "\r")))
		data = data[i+1:]
	}
	t.partial = append([]byte(nil), data...)
	return out, nil
}

// scanLine classifies a log line against the target cycle.
func scanLine(line string, target int) (done bool, stop bool) {
	if jobCompletedRE.MatchString(line) {
		return true, false
	}
	m := timeIntegratorRE.FindStringSubmatch(line)
	if m == nil {
		return false, false
	}
	cycle, err := strconv.Atoi(m[timeIntegratorRE.SubexpIndex("cycle")])
	if err != nil {
		return false, false
	}
	return cycle == target, cycle == target
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return 0, err
}

func (m *Monitor) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

// Watch starts cmd and follows its main log until the target cycle is
// reached, the simulation completes, the process exits or the log fails to
// appear in time. The returned code is the process exit status for Exited
// and Completed, and 0 otherwise. cmd has exited when Watch returns.
func (m *Monitor) Watch(ctx context.Context, cmd *exec.Cmd) (Outcome, int, error) {
	if !signalSupported {
		return Exited, 1, ErrUnsupported
	}
	log := m.logger()
	logPath := filepath.Join(m.Dir, MainLogFile)
	if err := os.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Exited, 0, fmt.Errorf("remove stale log: %w", err)
	}

	poll := m.PollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	startup := m.StartupTimeout
	if startup <= 0 {
		startup = time.Minute
	}

	// Watch the directory: the log doesn't exist yet and may be recreated.
	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(m.Dir); err != nil {
			log.Debug("fsnotify unavailable, polling only", zap.Error(err))
		} else {
			events, watchErrs = watcher.Events, watcher.Errors
		}
	} else {
		log.Debug("fsnotify unavailable, polling only", zap.Error(err))
	}

	if err := cmd.Start(); err != nil {
		return Exited, 0, err
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	// finish waits for the process, killing it first when asked to.
	finish := func(kill bool) error {
		if kill {
			_ = cmd.Process.Kill()
		}
		return <-exited
	}

	t := &tail{path: logPath}
	defer t.close()

	// check scans new log lines and reports whether monitoring is over.
	check := func() (Outcome, bool, error) {
		lines, err := t.lines()
		if err != nil {
			return Exited, false, err
		}
		for _, line := range lines {
			done, stop := scanLine(line, m.Target)
			if stop {
				log.Debug("target cycle reached", zap.Int("cycle", m.Target))
				return Stopped, true, nil
			}
			if done {
				return Completed, true, nil
			}
		}
		return Exited, false, nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	deadline := time.NewTimer(startup)
	defer deadline.Stop()

	for {
		var outcome Outcome
		var over bool
		var err error

		select {
		case <-ctx.Done():
			_ = finish(true)
			return Exited, 0, ctx.Err()
		case waitErr := <-exited:
			code, err := exitCode(waitErr)
			if err != nil {
				return Exited, 0, err
			}
			// The target may have been logged since the last check.
			outcome, over, _ := check()
			if !over {
				done, stop := scanLine(string(t.partial), m.Target)
				switch {
				case stop:
					outcome, over = Stopped, true
				case done:
					outcome, over = Completed, true
				}
			}
			if over && outcome == Stopped {
				log.Debug("target cycle reached as the process exited", zap.Int("code", code))
				return Stopped, 0, nil
			}
			if over {
				return Completed, code, nil
			}
			log.Debug("process exited before reaching target", zap.Int("code", code))
			return Exited, code, nil
		case <-deadline.C:
			if t.f == nil {
				if _, statErr := os.Stat(logPath); errors.Is(statErr, os.ErrNotExist) {
					_ = finish(true)
					return TimedOut, 0, nil
				}
			}
			continue
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(ev.Name) != MainLogFile {
				continue
			}
			if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
				t.close()
				t.f, t.offset, t.partial = nil, 0, nil
				continue
			}
			outcome, over, err = check()
		case werr, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			log.Debug("fsnotify error", zap.Error(werr))
			continue
		case <-ticker.C:
			outcome, over, err = check()
		}

		if err != nil {
			_ = finish(true)
			return Exited, 0, err
		}
		if !over {
			continue
		}
		if outcome == Stopped {
			if err := interrupt(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
				_ = finish(true)
				return Exited, 0, fmt.Errorf("signal idefix: %w", err)
			}
			select {
			case <-exited:
			case <-ctx.Done():
				_ = finish(true)
				return Exited, 0, ctx.Err()
			}
			return Stopped, 0, nil
		}
		code, err := exitCode(finish(false))
		return outcome, code, err
	}
}
