// Package fileset selects files by glob patterns and renders them as a tree.
package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Options tune FromPatterns.
type Options struct {
	// Recursive enables "**" to match any number of directories. Without it
	// "**" behaves like "*".
	Recursive bool
	// Excludes are patterns whose matches are removed from the result.
	Excludes []string
}

func glob(fsys string, patterns []string, recursive bool) (map[string]struct{}, error) {
	matches := map[string]struct{}{}
	dirFS := os.DirFS(fsys)
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		if !recursive {
			p = strings.ReplaceAll(p, "**", "*")
		}
		found, err := doublestar.Glob(dirFS, p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		for _, m := range found {
			matches[m] = struct{}{}
		}
	}
	return matches, nil
}

// FromPatterns returns the files and directories in source matching any of
// patterns and none of opts.Excludes. Paths are absolute, unique and sorted;
// directory names end with a path separator so they stand out from
// extension-less files.
func FromPatterns(source string, patterns []string, opts Options) ([]string, error) {
	root, err := filepath.Abs(source)
	if err != nil {
		return nil, err
	}
	include, err := glob(root, patterns, opts.Recursive)
	if err != nil {
		return nil, err
	}
	exclude, err := glob(root, opts.Excludes, opts.Recursive)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(include))
	for rel := range include {
		if _, skip := exclude[rel]; skip {
			continue
		}
		p := filepath.Join(root, filepath.FromSlash(rel))
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			p += string(filepath.Separator)
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// IsDir reports whether path names an existing directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
