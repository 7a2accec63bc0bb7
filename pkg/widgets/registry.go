package widgets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-adminform/pkg/schema"
)

// ControlID names a control implementation or grid cell renderer.
type ControlID string

// Built-in control identifiers.
const (
	ControlUneditableInput   ControlID = "uneditable-input"
	ControlInput             ControlID = "input"
	ControlInteger           ControlID = "integer"
	ControlTextarea          ControlID = "textarea"
	ControlSelect            ControlID = "select"
	ControlReadonlyOption    ControlID = "readonly-option"
	ControlBoolean           ControlID = "boolean"
	ControlSwitch            ControlID = "switch"
	ControlDatepicker        ControlID = "datepicker"
	ControlSelect2           ControlID = "select2"
	ControlSubNodeCollection ControlID = "sub-node-collection"
	ControlUniqueCollection  ControlID = "unique-col-collection"
	ControlTab               ControlID = "tab"
	ControlFieldset          ControlID = "fieldset"
	ControlSQLTab            ControlID = "sql-tab"
)

// Built-in cell renderer identifiers.
const (
	CellInteger ControlID = "integer"
	CellString  ControlID = "string"
	CellNumber  ControlID = "number"
	CellSelect  ControlID = "select-cell"
)

// Mode class indices of a per-mode mapping.
const (
	SlotProperties = 0
	SlotEdit       = 1
	SlotCell       = 2
)

// Mapping is the registry entry of one field type: either a single control
// used in every mode or one control per mode class.
type Mapping struct {
	ids []ControlID
}

// Single maps every mode to id.
func Single(id ControlID) Mapping {
	return Mapping{ids: []ControlID{id}}
}

// PerMode maps the properties, interactive and cell mode classes.
func PerMode(properties, edit, cell ControlID) Mapping {
	return Mapping{ids: []ControlID{properties, edit, cell}}
}

// At returns the id for a mode class index. Single mappings ignore the index;
// out-of-range indices fall back to slot 0.
func (m Mapping) At(idx int) ControlID {
	switch {
	case len(m.ids) == 0:
		return ""
	case len(m.ids) == 1:
		return m.ids[0]
	case idx < 0 || idx >= len(m.ids):
		return m.ids[0]
	default:
		return m.ids[idx]
	}
}

// IsSingle reports whether the mapping ignores the mode.
func (m Mapping) IsSingle() bool {
	return len(m.ids) == 1
}

// Slot returns the mode class index for mode. Unknown modes use slot 0.
func Slot(mode schema.Mode) int {
	switch mode {
	case schema.ModeProperties:
		return SlotProperties
	case schema.ModeEdit, schema.ModeCreate, schema.ModeControl:
		return SlotEdit
	case schema.ModeCell:
		return SlotCell
	default:
		return SlotProperties
	}
}

// Registry maps field types to controls per mode. Build it once at startup
// and share it; Register is the explicit extension point and Clone produces
// an isolated copy for variants.
type Registry struct {
	mu       sync.RWMutex
	mappings map[schema.FieldType]Mapping
}

// NewRegistry constructs a registry with the built-in mappings registered.
func NewRegistry() *Registry {
	reg := &Registry{mappings: make(map[schema.FieldType]Mapping)}
	reg.registerBuiltins()
	return reg
}

// Register adds or replaces the mapping for typ.
func (r *Registry) Register(typ schema.FieldType, mapping Mapping) error {
	if r == nil {
		return fmt.Errorf("widgets: registry is nil")
	}
	key := schema.FieldType(strings.TrimSpace(string(typ)))
	if key == "" {
		return fmt.Errorf("widgets: field type is required")
	}
	if len(mapping.ids) == 0 {
		return fmt.Errorf("widgets: mapping for %q is empty", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mappings == nil {
		r.mappings = make(map[schema.FieldType]Mapping)
	}
	r.mappings[key] = mapping
	return nil
}

// MustRegister panics when Register fails.
func (r *Registry) MustRegister(typ schema.FieldType, mapping Mapping) {
	if err := r.Register(typ, mapping); err != nil {
		panic(err)
	}
}

// Mapping returns the registered mapping for typ.
func (r *Registry) Mapping(typ schema.FieldType) (Mapping, bool) {
	if r == nil {
		return Mapping{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	mapping, ok := r.mappings[typ]
	return mapping, ok
}

// Lookup returns the control for typ rendered in mode. Unknown types pass
// through unchanged as an already resolved identifier.
func (r *Registry) Lookup(typ schema.FieldType, mode schema.Mode) ControlID {
	mapping, ok := r.Mapping(typ)
	if !ok {
		return ControlID(typ)
	}
	return mapping.At(Slot(mode))
}

// Types lists the registered field types in sorted order.
func (r *Registry) Types() []schema.FieldType {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]schema.FieldType, 0, len(r.mappings))
	for typ := range r.mappings {
		out = append(out, typ)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	clone := &Registry{mappings: make(map[schema.FieldType]Mapping)}
	if r == nil {
		return clone
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for typ, mapping := range r.mappings {
		clone.mappings[typ] = Mapping{ids: append([]ControlID(nil), mapping.ids...)}
	}
	return clone
}

func (r *Registry) registerBuiltins() {
	r.MustRegister(schema.TypeInt, PerMode(ControlUneditableInput, ControlInteger, CellInteger))
	r.MustRegister(schema.TypeText, PerMode(ControlUneditableInput, ControlInput, CellString))
	r.MustRegister(schema.TypeNumeric, PerMode(ControlUneditableInput, ControlInput, CellNumber))
	r.MustRegister(schema.TypeDate, Single(ControlDatepicker))
	r.MustRegister(schema.TypeBoolean, Single(ControlBoolean))
	r.MustRegister(schema.TypeOptions, PerMode(ControlReadonlyOption, ControlSelect, CellSelect))
	r.MustRegister(schema.TypeMultiline, PerMode(ControlTextarea, ControlTextarea, CellString))
	r.MustRegister(schema.TypeCollection, PerMode(ControlSubNodeCollection, ControlSubNodeCollection, CellString))
	r.MustRegister(schema.TypeUniqueColCollection, PerMode(ControlUniqueCollection, ControlUniqueCollection, CellString))
	r.MustRegister(schema.TypeSwitch, Single(ControlSwitch))
	r.MustRegister(schema.TypeSelect2, Single(ControlSelect2))
}
