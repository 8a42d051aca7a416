package logging_test

import (
	"bytes"
	"testing"

	"github.com/gandalfthegui/idfx/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Setenv(logging.EnvLevel, "")
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.WarnLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		got, err := logging.ParseLevel(tc.in)
		require.NoError(t, err, "level %q", tc.in)
		assert.Equal(t, tc.want, got, "level %q", tc.in)
	}
}

func TestParseLevelFromEnv(t *testing.T) {
	t.Setenv(logging.EnvLevel, "debug")
	got, err := logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, got)
}

func TestParseLevelInvalid(t *testing.T) {
	_, err := logging.ParseLevel("loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "warn")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
