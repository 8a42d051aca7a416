// Package idefix inspects the Idefix installation pointed to by $IDEFIX_DIR.
package idefix

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// EnvDir names the environment variable locating the Idefix source tree.
const EnvDir = "IDEFIX_DIR"

var (
	// ErrNotSet is returned by Dir when $IDEFIX_DIR is undefined.
	ErrNotSet = errors.New("this functionality requires $IDEFIX_DIR to be defined")
	// ErrNotDir is returned by Dir when $IDEFIX_DIR isn't a directory.
	ErrNotDir = errors.New("env variable $IDEFIX_DIR isn't properly defined")
)

// EnvError reports an unusable $IDEFIX_DIR along with the exit code the CLI
// uses for it.
type EnvError struct {
	Err  error
	Path string
}

func (e *EnvError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s is not a directory", e.Err, e.Path)
}

func (e *EnvError) Unwrap() error { return e.Err }

// ExitCode is 10 for an undefined variable and 20 for a bad path.
func (e *EnvError) ExitCode() int {
	if errors.Is(e.Err, ErrNotSet) {
		return 10
	}
	return 20
}

// Dir returns the value of $IDEFIX_DIR after checking it is a directory.
func Dir() (string, error) {
	dir, ok := os.LookupEnv(EnvDir)
	if !ok {
		return "", &EnvError{Err: ErrNotSet}
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return "", &EnvError{Err: ErrNotDir, Path: dir}
	}
	return dir, nil
}

// Version is a released Idefix version, e.g. "1.1.0".
type Version string

// Zero is reported for installations predating the changelog (< 0.7.0).
const Zero Version = "0.0.0"

func (v Version) canonical() string { return semver.Canonical("v" + string(v)) }

// Compare returns -1, 0 or +1 as v is older than, equal to or newer than w.
func (v Version) Compare(w Version) int { return semver.Compare(v.canonical(), w.canonical()) }

// AtLeast reports whether v is w or newer.
func (v Version) AtLeast(w Version) bool { return v.Compare(w) >= 0 }

func (v Version) String() string { return string(v) }

var (
	versionRE = regexp.MustCompile(`\d+\.\d+\.\d+`)
	// Release sections in the changelog look like '## [0.8.1] - 2021-06-24'.
	releaseRE = regexp.MustCompile(`^## \[\d+\.\d+\.\d+\]\s*-?\s*\d\d\d\d-\d\d-\d\d\s*$`)
)

// ParseVersion extracts the first x.y.z triplet found in s.
func ParseVersion(s string) (Version, bool) {
	m := versionRE.FindString(s)
	if m == "" {
		return "", false
	}
	return Version(m), true
}

// ReadVersion determines the most recent release of the Idefix tree at dir
// from its CHANGELOG.md. Development branches don't descend from release
// tags, so the changelog is more reliable than git here.
func ReadVersion(dir string) (Version, error) {
	f, err := os.Open(filepath.Join(dir, "CHANGELOG.md"))
	if errors.Is(err, os.ErrNotExist) {
		return Zero, nil
	}
	if err != nil {
		return "", fmt.Errorf("read changelog: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !releaseRE.MatchString(line) {
			continue
		}
		v, _ := ParseVersion(line)
		return v, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read changelog: %w", err)
	}
	return "", fmt.Errorf("could not determine Idefix's version from %s", f.Name())
}
