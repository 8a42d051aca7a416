package run

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestStaleSources(t *testing.T) {
	dir := t.TempDir()
	built := time.Now().Add(-time.Hour)

	writeFile(t, filepath.Join(dir, "setup.cpp"), "", built.Add(time.Minute))
	writeFile(t, filepath.Join(dir, "definitions.hpp"), "", built.Add(-time.Minute))
	writeFile(t, filepath.Join(dir, "sub", "extra.h"), "", built.Add(2*time.Minute))
	writeFile(t, filepath.Join(dir, "idefix.ini"), "", built.Add(time.Minute))

	stale, err := StaleSources(context.Background(), dir, "", built, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "setup.cpp"),
		filepath.Join(dir, "sub", "extra.h"),
	}, stale)
}

func TestStaleSourcesIgnoresNonGitIdefix(t *testing.T) {
	dir := t.TempDir()
	idefixDir := t.TempDir()
	built := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(idefixDir, "src", "main.cpp"), "", built.Add(time.Minute))

	stale, err := StaleSources(context.Background(), dir, idefixDir, built, nil)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
		"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestStaleSourcesTrackedIdefixFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	idefixDir := t.TempDir()
	built := time.Now().Add(-time.Hour)

	tracked := filepath.Join(idefixDir, "src", "fluid.hpp")
	untracked := filepath.Join(idefixDir, "src", "scratch.cpp")
	writeFile(t, tracked, "", built.Add(time.Minute))
	git(t, idefixDir, "init", "-q")
	git(t, idefixDir, "add", "src/fluid.hpp")
	writeFile(t, untracked, "", built.Add(time.Minute))

	stale, err := StaleSources(context.Background(), dir, idefixDir, built, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{tracked}, stale)
}
