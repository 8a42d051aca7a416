package inifile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(formatFloat(x))
		return nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func encodeValues(buf *bytes.Buffer, values []any) error {
	if len(values) == 1 {
		return encodeValue(buf, values[0])
	}
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeParams(buf *bytes.Buffer, params []Param, first bool) (bool, error) {
	for _, p := range params {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(p.Key)
		buf.Write(key)
		buf.WriteByte(':')
		if err := encodeValues(buf, p.Values); err != nil {
			return first, fmt.Errorf("%s: %w", p.Key, err)
		}
	}
	return first, nil
}

// MarshalJSON encodes d as an object, preserving the order of sections and
// parameters. Single values are encoded as scalars, several as arrays.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first, err := encodeParams(&buf, d.Params, true)
	if err != nil {
		return nil, err
	}
	for _, s := range d.Sections {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, _ := json.Marshal(s.Name)
		buf.Write(name)
		buf.WriteString(":{")
		if _, err := encodeParams(&buf, s.Params, true); err != nil {
			return nil, fmt.Errorf("[%s] %w", s.Name, err)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromJSON builds a Document from a JSON object. Malformed JSON yields
// ErrSyntax; valid JSON with no inifile equivalent yields ErrSchema.
func FromJSON(data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid json", ErrSyntax)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	doc := &Document{}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim('{') {
			sec, err := doc.EnsureSection(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSchema, err)
			}
			if err := readSection(dec, sec); err != nil {
				return nil, err
			}
			continue
		}
		values, err := readValues(dec, tok)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if err := doc.SetParam(key, values...); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ReadJSON is FromJSON over a reader.
func ReadJSON(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("%w: expected %v, got %v", ErrSchema, want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token %v", ErrSyntax, tok)
	}
	return key, nil
}

func readSection(dec *json.Decoder, sec *Section) error {
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		values, err := readValues(dec, tok)
		if err != nil {
			return fmt.Errorf("[%s] %s: %w", sec.Name, key, err)
		}
		if err := sec.Set(key, values...); err != nil {
			return err
		}
	}
	// closing '}'
	_, err := dec.Token()
	return err
}

// readValues decodes a scalar or an array of scalars starting at tok.
func readValues(dec *json.Decoder, tok json.Token) ([]any, error) {
	if tok == json.Delim('[') {
		var values []any
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			v, err := scalar(t)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: empty list", ErrSchema)
		}
		return values, nil
	}
	v, err := scalar(tok)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func scalar(tok json.Token) (any, error) {
	switch x := tok.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil && int64(int(i)) == i {
			return int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchema, err)
		}
		return f, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case nil:
		return nil, fmt.Errorf("%w: null values are not allowed", ErrSchema)
	case json.Delim:
		return nil, fmt.Errorf("%w: nested structures are not allowed", ErrSchema)
	default:
		return nil, fmt.Errorf("%w: unexpected token %v", ErrSchema, tok)
	}
}

// IsSchemaError reports whether err stems from data that is valid JSON but
// not representable as an inifile.
func IsSchemaError(err error) bool { return errors.Is(err, ErrSchema) }
