package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnsKind identifies the shape of a grid column directive.
type ColumnsKind uint8

const (
	// ColumnsNatural keeps declaration order for every cell-capable field.
	ColumnsNatural ColumnsKind = iota
	// ColumnsOrdered lists column names in display order; unlisted fields
	// are hidden.
	ColumnsOrdered
	// ColumnsConfigured maps names to per-column configuration; unlisted
	// fields are hidden.
	ColumnsConfigured
)

// ColumnConfig is one entry of a configured column directive.
type ColumnConfig struct {
	// Index pins the column position.
	Index *int `json:"index,omitempty" yaml:"index,omitempty"`
	// Class is appended to the header cell classes.
	Class string `json:"class,omitempty" yaml:"class,omitempty"`
	// Hidden excludes the column. Written as null in documents.
	Hidden bool `json:"-" yaml:"-"`
	// Shorthand marks entries written as a bare class string.
	Shorthand bool `json:"-" yaml:"-"`
}

// Columns is the grid column directive of a collection field.
type Columns struct {
	Kind   ColumnsKind
	Names  []string
	Config map[string]ColumnConfig
}

// OrderedColumns builds a name-list directive.
func OrderedColumns(names ...string) Columns {
	return Columns{Kind: ColumnsOrdered, Names: append([]string(nil), names...)}
}

// ColumnEntry pairs a column name with its configuration.
type ColumnEntry struct {
	Name   string
	Config ColumnConfig
}

// ConfiguredColumns builds a per-column directive, preserving entry order.
func ConfiguredColumns(entries ...ColumnEntry) Columns {
	out := Columns{Kind: ColumnsConfigured, Config: make(map[string]ColumnConfig, len(entries))}
	for _, entry := range entries {
		out.Names = append(out.Names, entry.Name)
		out.Config[entry.Name] = entry.Config
	}
	return out
}

// IsZero lets yaml omitempty skip natural directives.
func (c Columns) IsZero() bool {
	return c.Kind == ColumnsNatural
}

// IndexOf returns the position of name in the directive or -1.
func (c Columns) IndexOf(name string) int {
	for i, candidate := range c.Names {
		if candidate == name {
			return i
		}
	}
	return -1
}

// Lookup returns the configuration of name for configured directives.
func (c Columns) Lookup(name string) (ColumnConfig, bool) {
	cfg, ok := c.Config[name]
	return cfg, ok
}

// UnmarshalJSON accepts null, a list of names, or an object of configs.
func (c *Columns) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Columns{}
		return nil
	case data[0] == '[':
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("schema: columns: %w", err)
		}
		*c = OrderedColumns(names...)
		return nil
	case data[0] != '{':
		return fmt.Errorf("schema: columns must be a list or an object")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("schema: columns: %w", err)
	}
	var entries []ColumnEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("schema: columns: %w", err)
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("schema: columns %q: %w", name, err)
		}
		cfg, err := decodeColumnJSON(raw)
		if err != nil {
			return fmt.Errorf("schema: columns %q: %w", name, err)
		}
		entries = append(entries, ColumnEntry{Name: name, Config: cfg})
	}
	*c = ConfiguredColumns(entries...)
	return nil
}

func decodeColumnJSON(raw json.RawMessage) (ColumnConfig, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("null")):
		return ColumnConfig{Hidden: true}, nil
	case len(raw) > 0 && raw[0] == '"':
		var class string
		if err := json.Unmarshal(raw, &class); err != nil {
			return ColumnConfig{}, err
		}
		return ColumnConfig{Class: class, Shorthand: true}, nil
	default:
		var cfg ColumnConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ColumnConfig{}, err
		}
		return cfg, nil
	}
}

// MarshalJSON writes the directive back in its document shape.
func (c Columns) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ColumnsOrdered:
		return json.Marshal(c.Names)
	case ColumnsConfigured:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, name := range c.Names {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(name)
			buf.Write(key)
			buf.WriteByte(':')
			cfg := c.Config[name]
			var value []byte
			var err error
			switch {
			case cfg.Hidden:
				value = []byte("null")
			case cfg.Shorthand:
				value, err = json.Marshal(cfg.Class)
			default:
				value, err = json.Marshal(cfg)
			}
			if err != nil {
				return nil, err
			}
			buf.Write(value)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalYAML accepts null, a sequence of names, or a mapping of configs.
func (c *Columns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*c = Columns{}
			return nil
		}
		return fmt.Errorf("schema: line %d: columns must be a list or a mapping", node.Line)
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*c = OrderedColumns(names...)
		return nil
	case yaml.MappingNode:
		entries := make([]ColumnEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := strings.TrimSpace(node.Content[i].Value)
			value := node.Content[i+1]
			var cfg ColumnConfig
			switch {
			case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
				cfg.Hidden = true
			case value.Kind == yaml.ScalarNode:
				cfg.Class = value.Value
				cfg.Shorthand = true
			default:
				if err := value.Decode(&cfg); err != nil {
					return fmt.Errorf("schema: columns %q: %w", name, err)
				}
			}
			entries = append(entries, ColumnEntry{Name: name, Config: cfg})
		}
		*c = ConfiguredColumns(entries...)
		return nil
	default:
		return fmt.Errorf("schema: line %d: columns must be a list or a mapping", node.Line)
	}
}
