package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gandalfthegui/idfx/internal/fileset"
	"github.com/gandalfthegui/idfx/internal/idefix"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// removed by `make clean`
	objectPatterns = []string{"*.o", "*.cuda", "*.host"}
	kokkosFiles    = []string{
		"KokkosCore_config.h",
		"KokkosCore_config.tmp",
		"KokkosCore_Config*.tmp",
		"KokkosCore_Config*.hpp",
		"libkokkos.a",
	}
	cmakeFiles    = []string{"CMakeCache.txt", "cmake_install.cmake", "build"}
	generatedDirs = []string{"CMakeFiles"}
	// only with --all
	generatedFiles = []string{"Makefile", "idefix"}
)

func cleanPatterns(all bool) []string {
	patterns := slices.Concat(objectPatterns, kokkosFiles, cmakeFiles, generatedDirs)
	if all {
		patterns = append(patterns, generatedFiles...)
	}
	return patterns
}

func (a *app) newCleanCmd() *cobra.Command {
	var (
		dir       string
		all       bool
		dry       bool
		noConfirm bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove compilation files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.clean(cmd.Context(), dir, all, dry, noConfirm)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "the target directory to clean")
	f.BoolVar(&all, "all", false, "also clean generated Makefiles and idefix executable files")
	f.BoolVar(&dry, "dry-run", false, "skip prompt, exit without cleaning")
	f.BoolVar(&dry, "dry", false, "alias for --dry-run")
	f.BoolVar(&noConfirm, "no-confirm", false, "skip prompt confirmation")
	_ = f.MarkHidden("dry")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "no-confirm")
	cmd.MarkFlagsMutuallyExclusive("dry", "no-confirm")
	return cmd
}

func (a *app) clean(ctx context.Context, dir string, all, dry, noConfirm bool) error {
	target := a.abs(dir)
	if !fileset.IsDir(target) {
		return fmt.Errorf("no such directory %s", dir)
	}
	targets, err := fileset.FromPatterns(target, cleanPatterns(all), fileset.Options{})
	if err != nil {
		return err
	}

	// Files tracked by git are never cleaned.
	if idefix.GitAvailable() {
		tracked, err := idefix.LsFiles(ctx, target)
		if err != nil {
			a.log.Debug("not a git repository", zap.String("dir", target), zap.Error(err))
		}
		targets = slices.DeleteFunc(targets, func(t string) bool {
			return slices.Contains(tracked, strings.TrimSuffix(t, string(filepath.Separator)))
		})
	}

	if len(targets) == 0 {
		fmt.Fprintln(a.out, "Nothing to remove.")
		return nil
	}
	fmt.Fprintln(a.out, "The following files and directories can be removed")
	fmt.Fprintln(a.out, fileset.Tree(targets, target, a.cwd))

	if dry || (!noConfirm && !a.ui.Confirm("\nPerform cleaning ?")) {
		return nil
	}
	for _, t := range targets {
		if err := os.RemoveAll(strings.TrimSuffix(t, string(filepath.Separator))); err != nil {
			return err
		}
	}
	return nil
}
