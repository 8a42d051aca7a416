package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gandalfthegui/idfx/internal/fileset"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

var cloneBaseInclude = []string{"*.ini", "*.hpp", "*.cpp", "*.h", "*.c", "*.py", "CMakeLists.txt"}

type cloneOptions struct {
	shallow bool
	include []string
	exclude []string
}

func (a *app) newCloneCmd() *cobra.Command {
	var opts cloneOptions
	cmd := &cobra.Command{
		Use:   "clone SOURCE DEST",
		Short: "Clone a problem directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.clone(args[0], args[1], opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.shallow, "shallow", false, "build symlinks instead of actual copies")
	f.StringSliceVar(&opts.include, "include", nil, "additional file names or patterns to include in the clone")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "file names or patterns to exclude from the clone (wins over --include)")
	return cmd
}

// configInclude returns the [idfx clone] include patterns, split like a
// shell would.
func (a *app) configInclude() ([]string, error) {
	raw := a.cfg.Option("idfx clone", "include")
	if raw == "" {
		return nil, nil
	}
	words, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("[idfx clone] include in %s: %w", a.cfg.Path(), err)
	}
	return words, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return copyFile(src, dst)
	}
	if err := os.Mkdir(dst, fi.Mode().Perm()|0o700); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := copyTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) clone(source, dest string, opts cloneOptions) error {
	src := a.abs(source)
	if !fileset.IsDir(src) {
		return fmt.Errorf("source directory not found %s", source)
	}
	if entries, err := os.ReadDir(src); err != nil || len(entries) == 0 {
		return fmt.Errorf("%s appears to be empty", source)
	}
	if _, err := os.Lstat(a.abs(dest)); err == nil {
		return fmt.Errorf("destination directory exists %s", dest)
	}

	fromConfig, err := a.configInclude()
	if err != nil {
		return err
	}
	patterns := slices.Concat(cloneBaseInclude, opts.include, fromConfig)
	files, err := fileset.FromPatterns(src, patterns, fileset.Options{Excludes: opts.exclude})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("did not find any file to copy from %s", source)
	}

	sep := string(filepath.Separator)
	if strings.HasSuffix(dest, sep) || strings.HasSuffix(dest, "/") {
		a.ui.Warning(fmt.Sprintf("directory %s will be created. Drop the trailing '%s' char to turn off this warning.", dest, sep))
		dest = strings.TrimRight(dest, "/"+sep)
	}
	dst := a.abs(dest)
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}

	// Build the clone next to its destination, then rename it into place:
	// either everything is copied or nothing is.
	tmp, err := os.MkdirTemp(parent, ".idfx-clone-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	for _, f := range files {
		f = strings.TrimSuffix(f, sep)
		target := filepath.Join(tmp, filepath.Base(f))
		if opts.shallow {
			err = os.Symlink(f, target)
		} else {
			err = copyTree(f, target)
		}
		if err != nil {
			return err
		}
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return err
	}

	created, err := filepath.Glob(filepath.Join(dst, "*"))
	if err != nil {
		return err
	}
	if opts.shallow {
		width := 0
		for _, c := range created {
			width = max(width, len(c))
		}
		lines := make([]string, 0, len(created))
		for _, c := range created {
			target, err := os.Readlink(c)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("%-*s -> %s", width+1, c, target))
		}
		fmt.Fprintf(a.out, "Created the following symlinks\n%s\n", strings.Join(lines, "\n"))
		return nil
	}
	fmt.Fprintf(a.out, "Created the following files\n%s\n", fileset.Tree(created, dst, parent))
	return nil
}
