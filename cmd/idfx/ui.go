package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

const (
	colorBold      = "\033[1m"
	colorUnderline = "\033[4m"
	colorRed       = "\033[31m"
	colorGreen     = "\033[32m"
	colorBlue      = "\033[34m"
	colorMagenta   = "\033[35m"
	colorReset     = "\033[0m"
)

const (
	symbolLaunch  = "🚀"
	symbolSuccess = "🎉"
	symbolWarning = "❗"
	symbolError   = "💥"
	symbolHint    = "🔍"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// console prints status lines for the user. Colors are only used on
// terminals so that redirected output stays plain.
type console struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	cwd    string

	colorOut, colorErr bool
}

func newConsole(in io.Reader, out, errOut io.Writer, cwd string) *console {
	return &console{
		in:       bufio.NewReader(in),
		out:      out,
		errOut:   errOut,
		cwd:      cwd,
		colorOut: isTerminal(out),
		colorErr: isTerminal(errOut),
	}
}

func paint(enabled bool, s string, styles ...string) string {
	if !enabled || len(styles) == 0 {
		return s
	}
	return strings.Join(styles, "") + s + colorReset
}

// Error prints a fatal message, with an optional hint at a fix.
func (c *console) Error(msg, hint string) {
	fmt.Fprintf(c.errOut, "%s %s\n", symbolError, paint(c.colorErr, msg, colorRed, colorBold))
	if hint != "" {
		fmt.Fprintf(c.errOut, "%s %s\n", symbolHint, hint)
	}
}

func (c *console) Warning(msg string) {
	fmt.Fprintf(c.errOut, "%s %s\n", symbolWarning, paint(c.colorErr, msg, colorMagenta, colorUnderline))
}

func (c *console) Success(msg string) {
	fmt.Fprintf(c.out, "%s %s\n", symbolSuccess, paint(c.colorOut, msg, colorGreen))
}

// Launch announces a subprocess. The directory is only shown when it isn't
// the working directory.
func (c *console) Launch(argv []string, dir string) {
	trailer := ""
	if dir != "" {
		abs := dir
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(c.cwd, abs)
		}
		if filepath.Clean(abs) != filepath.Clean(c.cwd) {
			trailer = fmt.Sprintf(" (from %s%c)", dir, filepath.Separator)
		}
	}
	fmt.Fprintf(c.out, "%s %s %s%s\n", symbolLaunch,
		paint(c.colorOut, "running", colorBlue),
		paint(c.colorOut, strings.Join(argv, " "), colorBold),
		trailer)
}

// Confirm asks question until the answer is y or n. End of input counts as
// a no.
func (c *console) Confirm(question string) bool {
	for {
		fmt.Fprintf(c.out, "%s [y/n]: ", question)
		answer, err := c.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y":
			return true
		case "n":
			return false
		}
		if err != nil {
			fmt.Fprintln(c.out)
			return false
		}
		fmt.Fprintln(c.errOut, "Please enter y or n")
	}
}
