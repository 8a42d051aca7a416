package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gandalfthegui/idfx/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[compilation]
compiler = clang++
CPU = native

[idfx run]
recompile = prompt

[idfx clone]
include = *.log 'my file.txt'
`

func write(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocatePrefersLocalFile(t *testing.T) {
	global := t.TempDir()
	local := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", global)
	write(t, global, sample)
	want := write(t, local, sample)

	assert.Equal(t, want, config.Locate(local))
}

func TestLocateFallsBackToGlobal(t *testing.T) {
	global := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", global)

	// the global path is reported even though it doesn't exist yet
	assert.Equal(t, filepath.Join(global, config.FileName), config.Locate(t.TempDir()))
}

func TestOption(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	write(t, dir, sample)

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "clang++", cfg.Option("compilation", "compiler"))
	assert.Equal(t, "native", cfg.Option("compilation", "CPU"))
	assert.Equal(t, "native", cfg.Option("compilation", "cpu"))
	assert.Equal(t, "prompt", cfg.Option("idfx run", "recompile"))
	assert.Equal(t, "*.log 'my file.txt'", cfg.Option("idfx clone", "include"))
	assert.Empty(t, cfg.Option("compilation", "GPU"))
	assert.Empty(t, cfg.Option("nope", "nope"))
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Option("idfx run", "recompile"))
	assert.NotEmpty(t, cfg.Path())
}

func TestNilConfig(t *testing.T) {
	var cfg *config.Config
	assert.Empty(t, cfg.Option("compilation", "compiler"))
	assert.Empty(t, cfg.Path())
}
