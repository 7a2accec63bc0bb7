package resolver

import (
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

// Group is a labelled bucket of resolved fields rendered as one tab or
// fieldset.
type Group struct {
	Label  string
	Fields []Field
}

// Field is a field descriptor resolved for one render pass. Policy overrides
// (properties mode, version incompatibility) are already folded into the
// predicates; the remaining ones are evaluated against the model when the
// control renders.
type Field struct {
	Descriptor schema.Field

	// Name is the attribute path. Layout fields have none.
	Name  string
	Label string
	Type  schema.FieldType
	Mode  schema.Mode

	Control widgets.ControlID
	Cell    widgets.ControlID

	Visible   schema.Predicate
	Disabled  schema.Predicate
	Required  schema.Predicate
	Editable  schema.Predicate
	CanAdd    schema.Predicate
	CanEdit   schema.Predicate
	CanDelete schema.Predicate

	VersionCompatible bool

	// Groups holds the nested resolution of a uiLayout field; nil when the
	// nested schema resolved to nothing.
	Groups []Group

	// SubModel is the child model type of collection fields.
	SubModel *schema.ModelType

	Node       node.Node
	SchemaNode node.Node
	Info       node.ContextInfo
	TreeData   node.TreeData

	// CellHeaderClasses is the header class list used when the field is a
	// grid column.
	CellHeaderClasses string
}

// IsLayout reports whether the field only groups nested fields.
func (f Field) IsLayout() bool {
	return f.Type == schema.TypeUILayout
}

// IsVisible evaluates the visibility predicate. Unset means visible.
func (f Field) IsVisible(m *model.Model) bool {
	return f.Visible.Eval(m, true)
}

// IsDisabled evaluates the disabled predicate. Unset means enabled.
func (f Field) IsDisabled(m *model.Model) bool {
	return f.Disabled.Eval(m, false)
}

// IsRequired evaluates the required predicate.
func (f Field) IsRequired(m *model.Model) bool {
	return f.Required.Eval(m, false)
}

// IsEditable reports whether the grid cell of row may be edited.
func (f Field) IsEditable(row *model.Model) bool {
	return f.Editable.Eval(row, true)
}

// AllowAdd evaluates canAdd against the owning model.
func (f Field) AllowAdd(m *model.Model) bool {
	return f.CanAdd.Eval(m, false)
}

// AllowEdit evaluates canEdit against the owning model.
func (f Field) AllowEdit(m *model.Model) bool {
	return f.CanEdit.Eval(m, false)
}

// AllowDelete evaluates canDelete against the owning model.
func (f Field) AllowDelete(m *model.Model) bool {
	return f.CanDelete.Eval(m, false)
}
