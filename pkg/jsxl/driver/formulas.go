package driver

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// json keeps comparison operators readable in written artifacts.
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Formula is one named, "="-prefixed formula.
type Formula struct {
	Name string
	Text string
}

// Formulas is an ordered name -> formula mapping. Order is declaration
// order and is preserved by the JSON and YAML encodings.
type Formulas []Formula

// Get returns the formula named name.
func (f Formulas) Get(name string) (string, bool) {
	for _, e := range f {
		if e.Name == name {
			return e.Text, true
		}
	}
	return "", false
}

// Names returns the names in order.
func (f Formulas) Names() []string {
	names := make([]string, len(f))
	for i, e := range f {
		names[i] = e.Name
	}
	return names
}

// Map returns an unordered copy.
func (f Formulas) Map() map[string]string {
	m := make(map[string]string, len(f))
	for _, e := range f {
		m[e.Name] = e.Text
	}
	return m
}

// MarshalJSON writes a JSON object in declaration order.
func (f Formulas) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, e := range f {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(e.Name)
		stream.WriteString(e.Text)
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// UnmarshalJSON reads a JSON object of strings, keeping key order.
func (f *Formulas) UnmarshalJSON(data []byte) error {
	var out Formulas
	iter := jsoniter.ParseBytes(json, data)
	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		out = append(out, Formula{Name: key, Text: it.ReadString()})
		return it.Error == nil
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return fmt.Errorf("decoding formulas: %w", iter.Error)
	}
	*f = out
	return nil
}

// MarshalYAML renders a mapping node in declaration order.
func (f Formulas) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range f {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Text},
		)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping of strings, keeping key order.
func (f *Formulas) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("formulas: expected a mapping, got YAML kind %d", value.Kind)
	}
	out := make(Formulas, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		out = append(out, Formula{Name: value.Content[i].Value, Text: value.Content[i+1].Value})
	}
	*f = out
	return nil
}

// Format names an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses "json" or "yaml" (also "yml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatJSON, fmt.Errorf("unknown format %q (must be json or yaml)", s)
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Encode renders formulas in the given format. JSON output is indented.
func (f Formulas) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(f)
	default:
		// One formula per line.
		var sb strings.Builder
		sb.WriteString("{")
		for i, e := range f {
			if i > 0 {
				sb.WriteString(",")
			}
			key, err := json.MarshalToString(e.Name)
			if err != nil {
				return nil, err
			}
			val, err := json.MarshalToString(e.Text)
			if err != nil {
				return nil, err
			}
			sb.WriteString("\n  ")
			sb.WriteString(key)
			sb.WriteString(": ")
			sb.WriteString(val)
		}
		if len(f) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("}\n")
		return []byte(sb.String()), nil
	}
}

// Decode parses formulas encoded in the given format.
func Decode(data []byte, format Format) (Formulas, error) {
	var f Formulas
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	default:
		err = f.UnmarshalJSON(data)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
