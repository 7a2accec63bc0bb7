package schema

import (
	"strings"

	"github.com/goliatone/go-adminform/pkg/model"
)

// FieldType is the semantic type tag of a field. The built-in set is closed;
// any other value is carried through as a custom type whose name doubles as
// the control identifier.
type FieldType string

const (
	TypeInt                 FieldType = "int"
	TypeText                FieldType = "text"
	TypeNumeric             FieldType = "numeric"
	TypeDate                FieldType = "date"
	TypeBoolean             FieldType = "boolean"
	TypeOptions             FieldType = "options"
	TypeMultiline           FieldType = "multiline"
	TypeCollection          FieldType = "collection"
	TypeUniqueColCollection FieldType = "uniqueColCollection"
	TypeSwitch              FieldType = "switch"
	TypeSelect2             FieldType = "select2"
	TypeUILayout            FieldType = "uiLayout"
)

var builtinTypes = map[FieldType]struct{}{
	TypeInt: {}, TypeText: {}, TypeNumeric: {}, TypeDate: {}, TypeBoolean: {},
	TypeOptions: {}, TypeMultiline: {}, TypeCollection: {},
	TypeUniqueColCollection: {}, TypeSwitch: {}, TypeSelect2: {}, TypeUILayout: {},
}

// Known reports whether t is one of the built-in types.
func (t FieldType) Known() bool {
	_, ok := builtinTypes[t]
	return ok
}

// Custom reports whether t is a caller supplied type.
func (t FieldType) Custom() bool {
	return t != "" && !t.Known()
}

// Mode is the view context a field is rendered for.
type Mode string

const (
	ModeProperties Mode = "properties"
	ModeEdit       Mode = "edit"
	ModeCreate     Mode = "create"
	ModeCell       Mode = "cell"
	ModeControl    Mode = "control"
)

// ParseMode normalises a mode name. Unknown names are returned as-is.
func ParseMode(raw string) Mode {
	return Mode(strings.ToLower(strings.TrimSpace(raw)))
}

// Interactive reports whether the mode edits the record.
func (m Mode) Interactive() bool {
	return m == ModeEdit || m == ModeCreate
}

// Option is a select choice.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// OptionsFunc computes select options from the model at render time.
type OptionsFunc func(m *model.Model) ([]Option, error)

// SwitchOptions configures the switch control labels.
type SwitchOptions struct {
	OnText  string `json:"onText" yaml:"onText"`
	OffText string `json:"offText" yaml:"offText"`
}

// Field is a declarative field descriptor.
type Field struct {
	ID    string    `json:"id" yaml:"id"`
	Type  FieldType `json:"type" yaml:"type"`
	Label string    `json:"label" yaml:"label"`
	Group string    `json:"group,omitempty" yaml:"group,omitempty"`

	// Mode restricts the view contexts the field appears in. Empty means all.
	Mode []Mode `json:"mode,omitempty" yaml:"mode,omitempty"`

	Visible   Predicate `json:"visible,omitempty" yaml:"visible,omitempty"`
	Disabled  Predicate `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Required  Predicate `json:"required,omitempty" yaml:"required,omitempty"`
	Editable  Predicate `json:"editable,omitempty" yaml:"editable,omitempty"`
	CanAdd    Predicate `json:"canAdd,omitempty" yaml:"canAdd,omitempty"`
	CanEdit   Predicate `json:"canEdit,omitempty" yaml:"canEdit,omitempty"`
	CanDelete Predicate `json:"canDelete,omitempty" yaml:"canDelete,omitempty"`

	// MinVersion and MaxVersion bound the connected server version; zero
	// means unbounded.
	MinVersion int      `json:"min_version,omitempty" yaml:"min_version,omitempty"`
	MaxVersion int      `json:"max_version,omitempty" yaml:"max_version,omitempty"`
	ServerType []string `json:"server_type,omitempty" yaml:"server_type,omitempty"`

	// Deps lists attribute paths whose changes re-render the control.
	Deps []string `json:"deps,omitempty" yaml:"deps,omitempty"`

	// Control and Cell override the registry lookup.
	Control string `json:"control,omitempty" yaml:"control,omitempty"`
	Cell    string `json:"cell,omitempty" yaml:"cell,omitempty"`

	// Schema holds the nested fields of a uiLayout field.
	Schema []Field `json:"schema,omitempty" yaml:"schema,omitempty"`

	// Model names the child model type of collection fields. ModelType is
	// linked by the catalog or set directly in code.
	Model     string     `json:"model,omitempty" yaml:"model,omitempty"`
	ModelType *ModelType `json:"-" yaml:"-"`

	// Node overrides the schema node used for URL generation.
	Node string `json:"node,omitempty" yaml:"node,omitempty"`

	Columns                Columns  `json:"columns,omitempty" yaml:"columns,omitempty"`
	UniqueCol              []string `json:"uniqueCol,omitempty" yaml:"uniqueCol,omitempty"`
	AllowMultipleEmptyRows bool     `json:"allowMultipleEmptyRows,omitempty" yaml:"allowMultipleEmptyRows,omitempty"`

	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength int      `json:"maxlength,omitempty" yaml:"maxlength,omitempty"`

	Options     []Option    `json:"options,omitempty" yaml:"options,omitempty"`
	OptionsFunc OptionsFunc `json:"-" yaml:"-"`

	Placeholder       string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpMessage       string         `json:"helpMessage,omitempty" yaml:"helpMessage,omitempty"`
	ExtraClasses      []string       `json:"extraClasses,omitempty" yaml:"extraClasses,omitempty"`
	CellHeaderClasses string         `json:"cellHeaderClasses,omitempty" yaml:"cellHeaderClasses,omitempty"`
	Select2           map[string]any `json:"select2,omitempty" yaml:"select2,omitempty"`
	Switch            *SwitchOptions `json:"switch,omitempty" yaml:"switch,omitempty"`
}

// InMode reports whether the field participates in mode.
func (f Field) InMode(mode Mode) bool {
	if len(f.Mode) == 0 {
		return true
	}
	for _, m := range f.Mode {
		if m == mode {
			return true
		}
	}
	return false
}

// Name returns the field's attribute path.
func (f Field) Name() string {
	return f.ID
}

// TopAttr returns the top-level attribute the field reads and writes.
func (f Field) TopAttr() string {
	return model.TopAttr(f.ID)
}

// DepAttrs returns the distinct top-level attributes named by Deps.
func (f Field) DepAttrs() []string {
	if len(f.Deps) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(f.Deps))
	out := make([]string, 0, len(f.Deps))
	for _, dep := range f.Deps {
		top := model.TopAttr(dep)
		if top == "" {
			continue
		}
		if _, ok := seen[top]; ok {
			continue
		}
		seen[top] = struct{}{}
		out = append(out, top)
	}
	return out
}

// ModelType describes a record type: its field schema, defaults, and id
// attribute.
type ModelType struct {
	Name        string         `json:"name" yaml:"name"`
	IDAttribute string         `json:"idAttribute,omitempty" yaml:"idAttribute,omitempty"`
	Defaults    map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Schema      []Field        `json:"schema" yaml:"schema"`
}

// NewModel builds a model of this type. Defaults fill absent attributes.
func (t *ModelType) NewModel(attrs map[string]any, options ...model.Option) *model.Model {
	if t == nil {
		return model.New(attrs, options...)
	}
	opts := []model.Option{model.WithDefaults(t.Defaults)}
	if t.IDAttribute != "" {
		opts = append(opts, model.WithIDAttribute(t.IDAttribute))
	}
	return model.New(attrs, append(opts, options...)...)
}

// Factory returns a child factory for collections of this type.
func (t *ModelType) Factory() model.ChildFactory {
	return func(attrs map[string]any) *model.Model {
		return t.NewModel(attrs)
	}
}

// FieldIDs returns the ids of the top-level schema fields, in order.
func (t *ModelType) FieldIDs() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Schema))
	for _, f := range t.Schema {
		if f.ID != "" {
			out = append(out, f.ID)
		}
	}
	return out
}
