package run

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gandalfthegui/idfx/internal/fileset"
	"github.com/gandalfthegui/idfx/internal/idefix"
	"go.uber.org/zap"
)

// SourcePatterns select the files an Idefix build depends on.
var SourcePatterns = []string{
	"**/*.hpp",
	"**/*.cpp",
	"**/*.h",
	"**/*.c",
	"**/CMakeLists.txt",
	"**/Makefile.cmake",
}

func sourceFiles(dir string) ([]string, error) {
	matches, err := fileset.FromPatterns(dir, SourcePatterns, fileset.Options{Recursive: true})
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if !strings.HasSuffix(m, string(filepath.Separator)) {
			files = append(files, m)
		}
	}
	return files, nil
}

// StaleSources lists the sources modified after builtAt: those of the
// problem directory, and the git-tracked ones under idefixDir/src. An Idefix
// tree that isn't a git checkout only contributes nothing.
func StaleSources(ctx context.Context, problemDir, idefixDir string, builtAt time.Time, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	files, err := sourceFiles(problemDir)
	if err != nil {
		return nil, err
	}

	if idefixDir != "" {
		tracked, err := idefix.LsFiles(ctx, idefixDir)
		if err != nil {
			log.Debug("skipping Idefix sources", zap.Error(err))
		} else {
			src, err := sourceFiles(filepath.Join(idefixDir, "src"))
			if err != nil {
				return nil, err
			}
			isTracked := make(map[string]bool, len(tracked))
			for _, f := range tracked {
				isTracked[f] = true
			}
			for _, f := range src {
				if isTracked[f] {
					files = append(files, f)
				}
			}
		}
	}
	log.Debug("checking sources", zap.Int("count", len(files)))

	var stale []string
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, err
		}
		if info.ModTime().After(builtAt) {
			stale = append(stale, f)
		}
	}
	return stale, nil
}
