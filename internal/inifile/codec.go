package inifile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// token is a raw word from a parameter line.
type token struct {
	text   string
	quoted bool
}

// tokenize splits line on whitespace, honouring single and double quotes,
// and drops everything from an unquoted '#' onwards.
func tokenize(line string) ([]token, error) {
	var (
		toks    []token
		cur     strings.Builder
		inWord  bool
		quoted  bool
		quoteCh rune
	)
	flush := func() {
		if inWord {
			toks = append(toks, token{text: cur.String(), quoted: quoted})
		}
		cur.Reset()
		inWord, quoted = false, false
	}
	for _, r := range line {
		switch {
		case quoteCh != 0:
			if r == quoteCh {
				quoteCh = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quoteCh = r
			inWord, quoted = true, true
		case r == '#':
			flush()
			return toks, nil
		case r == ' ' || r == '\t':
			flush()
		default:
			inWord = true
			cur.WriteRune(r)
		}
	}
	if quoteCh != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", ErrSyntax)
	}
	flush()
	return toks, nil
}

// Load parses an inifile from r.
func Load(r io.Reader) (*Document, error) {
	doc := &Document{}
	var current *Section

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			end := strings.Index(line, "]")
			if end < 0 {
				return nil, fmt.Errorf("line %d: %w: unclosed section header", lineno, ErrSyntax)
			}
			name := strings.TrimSpace(line[1:end])
			if name == "" {
				return nil, fmt.Errorf("line %d: %w: empty section name", lineno, ErrSyntax)
			}
			if doc.Section(name) != nil {
				return nil, fmt.Errorf("line %d: %w: duplicate section %q", lineno, ErrSyntax, name)
			}
			current = &Section{Name: name}
			doc.Sections = append(doc.Sections, current)
			continue
		}

		toks, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		if len(toks) == 0 {
			continue
		}
		if len(toks) < 2 {
			return nil, fmt.Errorf("line %d: %w: parameter %q has no value", lineno, ErrSyntax, toks[0].text)
		}
		values := make([]any, 0, len(toks)-1)
		for _, tok := range toks[1:] {
			values = append(values, parseValue(tok.text, tok.quoted))
		}
		key := toks[0].text
		if current == nil {
			err = doc.SetParam(key, values...)
		} else {
			err = current.Set(key, values...)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadFile parses the inifile at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func writeParams(w *bufio.Writer, params []Param) {
	width := 0
	for _, p := range params {
		width = max(width, len(p.Key))
	}
	for _, p := range params {
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = formatValue(v)
		}
		fmt.Fprintf(w, "%-*s  %s\n", width, p.Key, strings.Join(vals, "  "))
	}
}

// Dump writes doc to w in inifile format.
func Dump(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	writeParams(bw, doc.Params)
	for i, s := range doc.Sections {
		if i > 0 || len(doc.Params) > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "[%s]\n", s.Name)
		writeParams(bw, s.Params)
	}
	return bw.Flush()
}

// DumpFile writes doc to path, truncating any existing file.
func DumpFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Dump(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
