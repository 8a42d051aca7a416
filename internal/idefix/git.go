package idefix

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// gitOutput runs git with args in dir and returns its trimmed stdout.
func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GitAvailable reports whether a git executable is on PATH.
func GitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether dir holds a .git directory.
func IsRepo(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && fi.IsDir()
}

// LsFiles returns the absolute paths of files tracked by git under dir.
func LsFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := gitOutput(ctx, dir, "ls-files")
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		files = append(files, filepath.Join(abs, filepath.FromSlash(line)))
	}
	return files, nil
}

// HeadSHA returns the commit hash checked out in dir.
func HeadSHA(ctx context.Context, dir string) (string, error) {
	return gitOutput(ctx, dir, "rev-parse", "HEAD")
}

// LatestTag returns the most recent tag reachable from HEAD in dir.
func LatestTag(ctx context.Context, dir string) (string, error) {
	return gitOutput(ctx, dir, "describe", "--tags", "--abbrev=0")
}
