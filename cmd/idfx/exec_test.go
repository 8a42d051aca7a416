//go:build !windows

package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gandalfthegui/idfx/internal/inifile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idefixTree sets $IDEFIX_DIR to a fresh directory released as version.
func idefixTree(t *testing.T, version string) string {
	t.Helper()
	dir := t.TempDir()
	changelog := "# Changelog\n\n## [" + version + "] - 2023-01-01\n### Added\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CHANGELOG.md"), []byte(changelog), 0o644))
	t.Setenv("IDEFIX_DIR", dir)
	return dir
}

// fakeTool puts an executable called name, running script, first on $PATH.
func fakeTool(t *testing.T, name, script string) {
	t.Helper()
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=idfx", "GIT_AUTHOR_EMAIL=idfx@example.com",
		"GIT_COMMITTER_NAME=idfx", "GIT_COMMITTER_EMAIL=idfx@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

// gitTree makes $IDEFIX_DIR a repository with one tagged commit.
func gitTree(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := idefixTree(t, "1.1.0")
	git(t, dir, "init", "-q", "-b", "main")
	git(t, dir, "add", "CHANGELOG.md")
	git(t, dir, "commit", "-q", "-m", "init")
	git(t, dir, "tag", "v1.1.0")
	return dir
}

func TestConfCMake(t *testing.T) {
	cwd := isolate(t)
	idefix := idefixTree(t, "1.0.0")
	fakeTool(t, "cmake", `if [ "$1" = "--version" ]; then
  echo "cmake version 3.22.1"
  exit 0
fi
echo "$@" > cmake-args.txt
`)
	touch(t, cwd, "setup.cpp")
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "idefix.cfg"),
		[]byte("[compilation]\nCPU = skx\n"), 0o644))

	r := idfx(t, cwd, "", "conf", "-mhd", "-cxx", "g++")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "🚀 running cmake "+idefix)

	args, err := os.ReadFile(filepath.Join(cwd, "cmake-args.txt"))
	require.NoError(t, err)
	assert.Equal(t, idefix+" -DIdefix_MHD=ON -DKokkos_ARCH_SKX=ON -DCMAKE_CXX_COMPILER=g++\n", string(args))
}

func TestConfForwardsExitCode(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.0.0")
	fakeTool(t, "cmake", `if [ "$1" = "--version" ]; then
  echo "cmake version 3.22.1"
  exit 0
fi
exit 4
`)
	touch(t, cwd, "problem/setup.cpp")

	r := idfx(t, cwd, "", "conf", "--dir", "problem")
	assert.Equal(t, 4, r.code)
	assert.Contains(t, r.stdout, "(from problem/)")
	assert.Empty(t, r.stderr)
}

// runnable sets up a configured problem in cwd whose "idefix" records its
// arguments and inifile, then ends its log with lastLine.
func runnable(t *testing.T, cwd, lastLine string) {
	t.Helper()
	exe := `#!/bin/sh
echo "$@" > args.txt
cp "$2" used.ini
echo "` + lastLine + `" > idefix.0.log
`
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "idefix"), []byte(exe), 0o755))
	ini := "[TimeIntegrator]\nCFL 0.9\ntstop 1.0\n\n[Output]\nlog 10\n"
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "idefix.ini"), []byte(ini), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(cwd, "idefix.ini"), old, old))
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "idefix.cfg"),
		[]byte("[idfx run]\nrecompile = prompt\n"), 0o644))
}

func readArgs(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	return string(data)
}

func TestRunCommand(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "-nowrite", "-i", "idefix.ini")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "🚀 running ./idefix -i idefix.ini -nowrite\n", r.stdout)

	args, err := os.ReadFile(filepath.Join(cwd, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-i idefix.ini -nowrite\n", string(args))
}

func TestRunCommandOneStep(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "--one")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "-i idefix.ini -maxcycles 1\n", readArgs(t, cwd))
}

func TestRunCommandOneStepForwardsArgs(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "--one", "-nowrite")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "-i idefix.ini -maxcycles 1 -nowrite\n", readArgs(t, cwd))
}

func TestRunCommandTimes(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "--one", "--times", "2")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "-i idefix.ini -maxcycles 2\n", readArgs(t, cwd))
	assert.Contains(t, r.stderr, "the --times option is deprecated")

	used, err := inifile.LoadFile(filepath.Join(cwd, "used.ini"))
	require.NoError(t, err)
	out := used.Section("Output")
	require.NotNil(t, out)
	assert.Len(t, out.Params, 1, "no flag may leak into the outputs")
}

func TestRunCommandOneStepOutputs(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "--one-step", "vtk")
	require.Equal(t, 0, r.code, r.stderr)

	args := strings.Fields(readArgs(t, cwd))
	require.Len(t, args, 4)
	assert.Equal(t, []string{"-i", args[1], "-maxcycles", "1"}, args)
	assert.NotEqual(t, "idefix.ini", args[1])
	assert.NoFileExists(t, args[1])

	used, err := inifile.LoadFile(filepath.Join(cwd, "used.ini"))
	require.NoError(t, err)
	out := used.Section("Output")
	require.NotNil(t, out)
	vtk, ok := out.Get("vtk")
	require.True(t, ok)
	assert.Equal(t, []any{0}, vtk)
	log, _ := out.Get("log")
	assert.Equal(t, []any{1}, log)
}

func TestRunCommandTimesWithoutOne(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "--times", "2")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "--times parameter is invalid")
	assert.NoFileExists(t, filepath.Join(cwd, "args.txt"))
}

// Idefix 0.x writes "TimeIntegrator: time | cycle | dt |" lines and stops
// cleanly on SIGUSR2.
const legacyIdefix = `#!/bin/sh
trap 'echo "Main: Job was interrupted" >> idefix.0.log; exit 0' USR2
i=0
while [ $i -lt 400 ]; do
  echo "TimeIntegrator: 1.000e-01 | $i | 1.000e-03 |" >> idefix.0.log
  i=$((i+1))
  sleep 0.02
done
exit 0
`

func TestRunCommandLegacyOneStep(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "0.9.0")
	runnable(t, cwd, "")
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "idefix"), []byte(legacyIdefix), 0o755))

	r := idfx(t, cwd, "", "run", "--one", "--times", "3")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "🎉 Successfully stopped idefix mid-air\n")

	data, err := os.ReadFile(filepath.Join(cwd, "idefix.0.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 3 |")
	assert.NotContains(t, string(data), "| 399 |")
}

func TestRunCommandFailure(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job was aborted because of an unrecoverable error.")

	r := idfx(t, cwd, "", "run")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "💥 ./idefix terminated with an error")
}

func TestRunCommandValidation(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")
	runnable(t, cwd, "Main: Job completed successfully.")

	r := idfx(t, cwd, "", "run", "--out", "vtk")
	assert.Equal(t, 1, r.code)
	assert.NoFileExists(t, filepath.Join(cwd, "args.txt"))
}

func TestRunCommandNotConfigured(t *testing.T) {
	cwd := isolate(t)
	idefixTree(t, "1.1.0")

	r := idfx(t, cwd, "", "run")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "🔍 Run `idfx conf` first")
}

func TestStamp(t *testing.T) {
	cwd := isolate(t)
	dir := gitTree(t)
	sha := git(t, dir, "rev-parse", "HEAD")

	r := idfx(t, cwd, "", "stamp")
	require.Equal(t, 0, r.code, r.stderr)
	lines := strings.Split(strings.TrimSuffix(r.stdout, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "v1.1.0", lines[0])
	assert.Equal(t, sha, lines[1])

	r = idfx(t, cwd, "", "stamp", "--json")
	require.Equal(t, 0, r.code, r.stderr)
	var s stamp
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &s))
	assert.Equal(t, "v1.1.0", s.Tag)
	assert.Equal(t, sha, s.SHA)
	_, err := time.Parse(stampDateLayout, s.Date)
	assert.NoError(t, err)
}

func TestStampWithoutTag(t *testing.T) {
	cwd := isolate(t)
	dir := gitTree(t)
	git(t, dir, "tag", "-d", "v1.1.0")

	r := idfx(t, cwd, "", "stamp")
	require.Equal(t, 0, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, "unknown\n"), r.stdout)
}

func TestSwitch(t *testing.T) {
	cwd := isolate(t)
	dir := gitTree(t)
	git(t, dir, "branch", "dev")

	r := idfx(t, cwd, "", "switch", "dev")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "🚀 running git checkout dev (from "+dir+"/)")
	assert.Equal(t, "dev", git(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))

	r = idfx(t, cwd, "", "switch")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "main", git(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))

	r = idfx(t, cwd, "", "switch", "nope")
	assert.NotEqual(t, 0, r.code)
}
