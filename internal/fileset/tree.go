package fileset

import (
	"path/filepath"
	"runtime"
	"strings"
)

type treeGlyphs struct {
	trunk, fork, angle, branch string
}

func glyphs() treeGlyphs {
	if runtime.GOOS == "windows" {
		return treeGlyphs{trunk: "|", fork: "|-", angle: "'-", branch: "-"}
	}
	return treeGlyphs{trunk: "│", fork: "├", angle: "└", branch: "─"}
}

func rel(path, base string) string {
	r, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return r
}

// Tree renders files, which live in parentDir, as an indented file tree.
// The first line names parentDir relative to origin; directories get an
// elided "(...)" child.
//
//	 problem
//	 ├── a.cpp
//	 ├── build
//	 │   └── (...)
//	 └── setup.cpp
func Tree(files []string, parentDir, origin string) string {
	g := glyphs()
	head, err := filepath.Rel(origin, parentDir)
	if err != nil {
		// different volumes on Windows
		head, _ = filepath.Abs(parentDir)
	}
	lines := []string{head}
	for i, f := range files {
		name := rel(f, parentDir)
		if i == len(files)-1 {
			lines = append(lines, g.angle+strings.Repeat(g.branch, 2)+" "+name)
			break
		}
		lines = append(lines, g.fork+strings.Repeat(g.branch, 2)+" "+name)
		if IsDir(f) {
			lines = append(lines, g.trunk+"   "+g.angle+strings.Repeat(g.branch, 2)+" (...)")
		}
	}
	for i := range lines {
		lines[i] = " " + lines[i]
	}
	return strings.Join(lines, "\n")
}
