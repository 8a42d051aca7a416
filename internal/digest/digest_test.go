package digest

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rank0 = `Idefix v1.1.0
Main: Cycling Time Integrator...
TimeIntegrator:   time      |    cycle    |   time step  | cell updates/s |   MPI overhead
TimeIntegrator: 0.000e+00   |      0      |   1.000e-04  |      N/A       |      N/A
TimeIntegrator: 1.000e-02   |      100    |   1.000e-04  |   3.5e+07      |      2.1
Main: Job completed successfully.
`

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCapture(t *testing.T) {
	got := Capture([]byte(rank0))
	require.Len(t, got, 3)
	assert.Equal(t, "   time      |    cycle    |   time step  | cell updates/s |   MPI overhead", got[0])

	assert.Empty(t, Capture([]byte("TimeIntegrator: no pipe here\n")))
	assert.Empty(t, Capture([]byte(" TimeIntegrator: a | b\n")))
}

func TestColumns(t *testing.T) {
	cols := Columns(Capture([]byte(rank0)))
	require.Len(t, cols, 5)

	assert.Equal(t, "time", cols[0].Name)
	assert.Equal(t, []any{0.0, 1e-2}, cols[0].Values)
	assert.Equal(t, "cycle", cols[1].Name)
	assert.Equal(t, []any{0, 100}, cols[1].Values)

	require.Len(t, cols[3].Values, 2)
	assert.True(t, math.IsNaN(cols[3].Values[0].(float64)))
	assert.Equal(t, 3.5e7, cols[3].Values[1])
}

func TestColumnsShortRows(t *testing.T) {
	cols := Columns([]string{"a | b", "1 | x", "2"})
	require.Len(t, cols, 2)
	assert.Equal(t, []any{1, 2}, cols[0].Values)
	assert.Equal(t, []any{"x", nil}, cols[1].Values)
	assert.Nil(t, Columns(nil))
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "idefix.0.log", rank0)
	writeLog(t, dir, "idefix.1.log", rank0)
	writeLog(t, dir, "other.txt", rank0)

	d, err := Dir(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, d.Logs, 2)
	assert.Equal(t, "idefix.0.log", d.Logs[0].Path)
	assert.Equal(t, "idefix.1.log", d.Logs[1].Path)
	assert.Empty(t, d.Warnings)
}

func TestDirHeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "idefix.0.log", rank0)
	writeLog(t, dir, "idefix.1.log", "TimeIntegrator: t | n\nTimeIntegrator: 1.0 | 2\n")

	d, err := Dir(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "header mismatch from")
}

func TestDirErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := Dir(context.Background(), missing, nil)
	assert.EqualError(t, err, "No such directory: '"+missing+"'")

	empty := t.TempDir()
	_, err = Dir(context.Background(), empty, nil)
	assert.EqualError(t, err, "No log files found in '"+empty+"'")

	noData := t.TempDir()
	writeLog(t, noData, "idefix.0.log", "Main: nothing to see\n")
	_, err = Dir(context.Background(), noData, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMarshalJSON(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "idefix.0.log", rank0)
	writeLog(t, dir, "idefix.1.log", "Main: nothing\n")

	d, err := Dir(context.Background(), dir, nil)
	require.NoError(t, err)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"idefix.0.log": {
			"time": [0, 0.01],
			"cycle": [0, 100],
			"time step": [0.0001, 0.0001],
			"cell updates/s": [null, 35000000],
			"MPI overhead": [null, 2.1]
		},
		"idefix.1.log": {}
	}`, string(out))
}
