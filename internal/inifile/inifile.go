// Package inifile reads and writes Idefix (Pluto-style) inifiles.
//
// An inifile is a list of sections, each holding parameters that map a key
// to one or more whitespace separated values:
//
//	[Grid]
//	X1-grid    1  0.0  64  u  1.0
//
//	[TimeIntegrator]
//	CFL        0.9
//	tstop      10.0
//
// Parameters appearing before the first section header are kept at the top
// level of the Document. Values are typed on load: integers, then floats,
// then booleans; anything else is a string.
package inifile

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrNotSection is returned when a section is requested under a name
	// that is already used by a top-level parameter.
	ErrNotSection = errors.New("not a section")
	// ErrSchema is returned for data that can't be represented as an inifile.
	ErrSchema = errors.New("invalid inifile schema")
	// ErrSyntax is returned for malformed input.
	ErrSyntax = errors.New("invalid syntax")
)

// Param is a key with one or more values. Values hold int, float64, bool or
// string.
type Param struct {
	Key    string
	Values []any
}

// Section is a named, ordered list of parameters.
type Section struct {
	Name   string
	Params []Param
}

// Document is a parsed inifile.
type Document struct {
	// Params are the parameters found before any section header.
	Params   []Param
	Sections []*Section
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		return x, nil
	case string:
		// a value is written on one line inside ' or " quotes, without escapes
		if strings.ContainsAny(x, "\r\n") || (strings.Contains(x, "'") && strings.Contains(x, `"`)) {
			return nil, fmt.Errorf("%w: %q can't be written as an inifile value", ErrSchema, x)
		}
		return x, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrSchema, v)
	}
}

func normalizeAll(values []any) ([]any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: a parameter needs at least one value", ErrSchema)
	}
	out := make([]any, len(values))
	for i, v := range values {
		n, err := normalize(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func getParam(params []Param, key string) ([]any, bool) {
	for _, p := range params {
		if p.Key == key {
			return p.Values, true
		}
	}
	return nil, false
}

func setParam(params []Param, key string, values []any) ([]Param, error) {
	norm, err := normalizeAll(values)
	if err != nil {
		return params, fmt.Errorf("%s: %w", key, err)
	}
	for i := range params {
		if params[i].Key == key {
			params[i].Values = norm
			return params, nil
		}
	}
	return append(params, Param{Key: key, Values: norm}), nil
}

// Get returns the values of key.
func (s *Section) Get(key string) ([]any, bool) { return getParam(s.Params, key) }

// Set replaces the values of key, appending the parameter if it is new.
func (s *Section) Set(key string, values ...any) error {
	params, err := setParam(s.Params, key, values)
	if err != nil {
		return err
	}
	s.Params = params
	return nil
}

// SetDefault sets key to value unless it is already defined, and returns the
// first value of key.
func (s *Section) SetDefault(key string, value any) (any, error) {
	if values, ok := s.Get(key); ok {
		return values[0], nil
	}
	if err := s.Set(key, value); err != nil {
		return nil, err
	}
	values, _ := s.Get(key)
	return values[0], nil
}

// Param returns the values of the top-level parameter key.
func (d *Document) Param(key string) ([]any, bool) { return getParam(d.Params, key) }

// SetParam sets a top-level parameter.
func (d *Document) SetParam(key string, values ...any) error {
	if d.Section(key) != nil {
		return fmt.Errorf("%w: %q is a section", ErrSchema, key)
	}
	params, err := setParam(d.Params, key, values)
	if err != nil {
		return err
	}
	d.Params = params
	return nil
}

// Section returns the section called name, or nil.
func (d *Document) Section(name string) *Section {
	for _, s := range d.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// EnsureSection returns the section called name, creating an empty one at
// the end of the document if needed. It fails with ErrNotSection when name
// is a top-level parameter.
func (d *Document) EnsureSection(name string) (*Section, error) {
	if _, ok := d.Param(name); ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotSection)
	}
	if s := d.Section(name); s != nil {
		return s, nil
	}
	s := &Section{Name: name}
	d.Sections = append(d.Sections, s)
	return s, nil
}

func cloneParams(params []Param) []Param {
	if params == nil {
		return nil
	}
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{Key: p.Key, Values: append([]any(nil), p.Values...)}
	}
	return out
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := &Document{Params: cloneParams(d.Params)}
	for _, s := range d.Sections {
		c.Sections = append(c.Sections, &Section{Name: s.Name, Params: cloneParams(s.Params)})
	}
	return c
}

// Equal reports whether d and other hold the same parameters in the same
// order.
func (d *Document) Equal(other *Document) bool {
	return reflect.DeepEqual(d, other)
}

// parseValue types a raw token. Quoted tokens are always strings.
func parseValue(tok string, quoted bool) any {
	if quoted {
		return tok
	}
	if i, err := strconv.Atoi(tok); err == nil {
		return i
	}
	if looksNumeric(tok) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f
		}
	}
	switch strings.ToLower(tok) {
	case "true":
		return true
	case "false":
		return false
	}
	return tok
}

// looksNumeric filters out words ParseFloat would accept, such as "inf".
func looksNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return false
		}
	}
	return true
}

// formatFloat renders f the way Python's repr does, which is what Idefix
// users are used to reading (1e-06, 0.5, 2.0).
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	exp := 0
	if f != 0 {
		exp = int(math.Floor(math.Log10(math.Abs(f))))
	}
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatValue(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return quoteIfNeeded(x)
	default:
		return fmt.Sprint(x)
	}
}

func quoteIfNeeded(s string) string {
	needsQuotes := s == "" || strings.ContainsAny(s, " \t#'\"")
	if !needsQuotes {
		if _, isString := parseValue(s, false).(string); !isString {
			needsQuotes = true
		}
	}
	if !needsQuotes {
		return s
	}
	if strings.Contains(s, "'") {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}
