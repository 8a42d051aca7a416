// Package logging builds the zap logger shared by the idfx command tree.
//
// Diagnostic records always go to stderr so that commands producing
// machine-readable output on stdout (read, digest, stamp --json) stay clean.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel is consulted when no level is given on the command line.
const EnvLevel = "IDFX_LOG_LEVEL"

// DefaultLevel keeps the CLI quiet unless something went wrong.
const DefaultLevel = "warn"

// ParseLevel maps a level name to a zapcore.Level. The empty string falls
// back to $IDFX_LOG_LEVEL, then to DefaultLevel.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		name = os.Getenv(EnvLevel)
	}
	if name == "" {
		name = DefaultLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", name)
	}
	return lvl, nil
}

// New returns a console logger writing to w at the given level.
func New(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.CallerKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core).Named("idfx"), nil
}
