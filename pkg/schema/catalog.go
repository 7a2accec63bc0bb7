package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateField is returned when two fields of one schema share an id.
	ErrDuplicateField = errors.New("schema: duplicate field id")
	// ErrUnknownModel is returned when a field references an undeclared model.
	ErrUnknownModel = errors.New("schema: unknown model type")
	// ErrDuplicateDefinition is returned when a model or node is declared twice.
	ErrDuplicateDefinition = errors.New("schema: duplicate definition")
)

// HelpRefs lists the documentation pages attached to a node.
type HelpRefs struct {
	SQLAlter  string `json:"sqlAlter,omitempty" yaml:"sqlAlter,omitempty"`
	SQLCreate string `json:"sqlCreate,omitempty" yaml:"sqlCreate,omitempty"`
	Dialog    string `json:"dialog,omitempty" yaml:"dialog,omitempty"`
}

// NodeSpec declares a tree node type: what it edits and how its URLs are
// built.
type NodeSpec struct {
	Type            string   `json:"type" yaml:"type"`
	Label           string   `json:"label" yaml:"label"`
	CollectionLabel string   `json:"collectionLabel,omitempty" yaml:"collectionLabel,omitempty"`
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Ancestors       []string `json:"ancestors,omitempty" yaml:"ancestors,omitempty"`
	HasSQL          bool     `json:"hasSQL,omitempty" yaml:"hasSQL,omitempty"`
	Model           string   `json:"model" yaml:"model"`
	URLBase         string   `json:"urlBase,omitempty" yaml:"urlBase,omitempty"`
	Help            HelpRefs `json:"help,omitempty" yaml:"help,omitempty"`

	// NewDefaults seeds attributes of records created under this node. The
	// value "$server.user" is replaced with the connected user name.
	NewDefaults map[string]any `json:"newDefaults,omitempty" yaml:"newDefaults,omitempty"`
}

// Catalog holds model types and node specs loaded from schema documents.
type Catalog struct {
	models map[string]*ModelType
	nodes  map[string]NodeSpec
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		models: make(map[string]*ModelType),
		nodes:  make(map[string]NodeSpec),
	}
}

// AddModel registers a model type.
func (c *Catalog) AddModel(mt *ModelType) error {
	if mt == nil {
		return errors.New("schema: model type is nil")
	}
	name := strings.TrimSpace(mt.Name)
	if name == "" {
		return errors.New("schema: model type name is required")
	}
	if _, exists := c.models[name]; exists {
		return fmt.Errorf("%w: model %q", ErrDuplicateDefinition, name)
	}
	mt.Name = name
	c.models[name] = mt
	return nil
}

// AddNode registers a node spec.
func (c *Catalog) AddNode(spec NodeSpec) error {
	typ := strings.TrimSpace(spec.Type)
	if typ == "" {
		return errors.New("schema: node type is required")
	}
	if _, exists := c.nodes[typ]; exists {
		return fmt.Errorf("%w: node %q", ErrDuplicateDefinition, typ)
	}
	spec.Type = typ
	c.nodes[typ] = spec
	return nil
}

// Model returns the model type registered under name.
func (c *Catalog) Model(name string) (*ModelType, bool) {
	if c == nil {
		return nil, false
	}
	mt, ok := c.models[strings.TrimSpace(name)]
	return mt, ok
}

// Node returns the node spec registered for typ.
func (c *Catalog) Node(typ string) (NodeSpec, bool) {
	if c == nil {
		return NodeSpec{}, false
	}
	spec, ok := c.nodes[strings.TrimSpace(typ)]
	return spec, ok
}

// ModelNames returns the sorted model names.
func (c *Catalog) ModelNames() []string {
	return sortedKeys(c.models)
}

// NodeTypes returns the sorted node types.
func (c *Catalog) NodeTypes() []string {
	return sortedKeys(c.nodes)
}

// Merge copies every definition of other into c.
func (c *Catalog) Merge(other *Catalog) error {
	if other == nil {
		return nil
	}
	for _, name := range other.ModelNames() {
		if err := c.AddModel(other.models[name]); err != nil {
			return err
		}
	}
	for _, typ := range other.NodeTypes() {
		if err := c.AddNode(other.nodes[typ]); err != nil {
			return err
		}
	}
	return nil
}

// Link resolves model references of collection fields and validates every
// schema: field ids must be unique per schema and references must exist.
func (c *Catalog) Link() error {
	for _, name := range c.ModelNames() {
		mt := c.models[name]
		if err := c.linkFields(mt.Schema, "model "+name); err != nil {
			return err
		}
	}
	for _, typ := range c.NodeTypes() {
		spec := c.nodes[typ]
		if spec.Model == "" {
			continue
		}
		if _, ok := c.models[spec.Model]; !ok {
			return fmt.Errorf("%w: node %q references %q", ErrUnknownModel, typ, spec.Model)
		}
	}
	return nil
}

func (c *Catalog) linkFields(fields []Field, where string) error {
	if err := ValidateFields(fields); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	for i := range fields {
		f := &fields[i]
		if f.Model != "" && f.ModelType == nil {
			mt, ok := c.models[f.Model]
			if !ok {
				return fmt.Errorf("%w: %s field %q references %q", ErrUnknownModel, where, f.ID, f.Model)
			}
			f.ModelType = mt
		}
		if len(f.Schema) > 0 {
			if err := c.linkFields(f.Schema, where+" layout "+f.Label); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateFields checks id uniqueness across a schema, including the fields
// nested in uiLayout entries, which share the owning model's attributes.
func ValidateFields(fields []Field) error {
	seen := make(map[string]struct{})
	return validateFields(fields, seen)
}

func validateFields(fields []Field, seen map[string]struct{}) error {
	for _, f := range fields {
		if f.Type == TypeUILayout {
			if err := validateFields(f.Schema, seen); err != nil {
				return err
			}
			continue
		}
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return fmt.Errorf("schema: field of type %q has no id", f.Type)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateField, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
