package inifile

import (
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

func yamlScalar(v any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch x := v.(type) {
	case int:
		n.Tag, n.Value = "!!int", strconv.Itoa(x)
	case float64:
		n.Tag = "!!float"
		switch {
		case math.IsNaN(x):
			n.Value = ".nan"
		case math.IsInf(x, 1):
			n.Value = ".inf"
		case math.IsInf(x, -1):
			n.Value = "-.inf"
		default:
			n.Value = formatFloat(x)
		}
	case bool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(x)
	default:
		n.Tag, n.Value = "!!str", x.(string)
	}
	return n
}

func yamlValues(values []any) *yaml.Node {
	if len(values) == 1 {
		return yamlScalar(values[0])
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range values {
		seq.Content = append(seq.Content, yamlScalar(v))
	}
	return seq
}

func yamlParams(m *yaml.Node, params []Param) {
	for _, p := range params {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			yamlValues(p.Values),
		)
	}
}

// YAML returns an order-preserving YAML mapping equivalent to the JSON view.
func (d *Document) YAML() *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	yamlParams(root, d.Params)
	for _, s := range d.Sections {
		sec := &yaml.Node{Kind: yaml.MappingNode}
		yamlParams(sec, s.Params)
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Name},
			sec,
		)
	}
	return root
}

// DumpYAML writes the YAML view of doc to w.
func DumpYAML(w io.Writer, doc *Document, indent int) error {
	enc := yaml.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent(indent)
	}
	if err := enc.Encode(doc.YAML()); err != nil {
		return err
	}
	return enc.Close()
}
