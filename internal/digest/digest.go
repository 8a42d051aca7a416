// Package digest aggregates the TimeIntegrator performance lines of Idefix
// log files into columns.
package digest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LogPattern selects the log files of a run directory.
const LogPattern = "idefix*log"

var (
	lineRE = regexp.MustCompile(`^(TimeIntegrator:)(.*\|.*)$`)

	ErrNoData = errors.New("Failed to parse any data")
)

// Column is a named series of values: int, float64, string, or nil for
// missing and not-available entries.
type Column struct {
	Name   string
	Values []any
}

// Log holds the columns parsed from one file.
type Log struct {
	// Path is relative to the digested directory.
	Path    string
	Header  string
	Columns []Column
}

// Digest is the parsed content of every log in a directory, in file name
// order.
type Digest struct {
	Logs []Log
	// Warnings report inconsistencies that don't prevent the digest.
	Warnings []string
}

// parseToken types a cell. "N/A" maps to NaN.
func parseToken(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "N/A" {
		return math.NaN()
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Capture returns the data part of every TimeIntegrator line in content.
func Capture(content []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if m := lineRE.FindStringSubmatch(scanner.Text()); m != nil {
			out = append(out, m[2])
		}
	}
	return out
}

// Columns splits captured lines on '|'. The first line names the columns;
// short rows are padded with nil.
func Columns(captured []string) []Column {
	if len(captured) == 0 {
		return nil
	}
	names := strings.Split(captured[0], "|")
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: strings.TrimSpace(n), Values: make([]any, 0, len(captured)-1)}
	}
	for _, line := range captured[1:] {
		cells := strings.Split(line, "|")
		for i := range cols {
			var v any
			if i < len(cells) {
				v = parseToken(cells[i])
			}
			cols[i].Values = append(cols[i].Values, v)
		}
	}
	return cols
}

// Dir digests the log files of dir. Files are read concurrently.
func Dir(ctx context.Context, dir string, log *zap.Logger) (*Digest, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("No such directory: '%s'", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, LogPattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("No log files found in '%s'", dir)
	}

	captured := make([][]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(f)
			if err != nil {
				return err
			}
			captured[i] = Capture(content)
			log.Debug("parsed log", zap.String("file", f), zap.Int("lines", len(captured[i])))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Digest{}
	found := false
	header := ""
	for i, f := range files {
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			rel = f
		}
		l := Log{Path: filepath.ToSlash(rel), Columns: Columns(captured[i])}
		if len(captured[i]) > 0 {
			l.Header = captured[i][0]
			if !found {
				found, header = true, l.Header
			} else if l.Header != header {
				d.Warnings = append(d.Warnings, fmt.Sprintf("header mismatch from %s and %s", f, files[0]))
			}
		}
		d.Logs = append(d.Logs, l)
	}
	if !found {
		return nil, ErrNoData
	}
	return d, nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		v = nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// MarshalJSON encodes d as {path: {column: [values]}}, keeping file and
// column order. NaN becomes null.
func (d *Digest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range d.Logs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(l.Path)
		buf.Write(key)
		buf.WriteString(":{")
		for j, c := range l.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, _ := json.Marshal(c.Name)
			buf.Write(name)
			buf.WriteString(":[")
			for k, v := range c.Values {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := encodeValue(&buf, v); err != nil {
					return nil, fmt.Errorf("%s: %s: %w", l.Path, c.Name, err)
				}
			}
			buf.WriteByte(']')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
