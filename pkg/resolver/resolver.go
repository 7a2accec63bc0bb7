// Package resolver turns a field schema plus runtime context into grouped,
// resolved fields ready for rendering.
package resolver

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

// Group labels used when a field does not name one and for the synthesised
// SQL preview group.
const (
	GeneralGroup = "General"
	SQLGroup     = "SQL"
)

// SQLFieldName is the attribute name of the synthesised SQL preview field.
const SQLFieldName = "sql"

// Option customises a Resolver.
type Option func(*Resolver)

// WithRegistry sets the control registry. Defaults to widgets.NewRegistry.
func WithRegistry(reg *widgets.Registry) Option {
	return func(r *Resolver) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// WithNodes sets the lookup used for per-field node overrides.
func WithNodes(nodes node.Lookup) Option {
	return func(r *Resolver) {
		r.nodes = nodes
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithGroupLabels overrides the default and SQL group labels.
func WithGroupLabels(general, sql string) Option {
	return func(r *Resolver) {
		if strings.TrimSpace(general) != "" {
			r.generalLabel = general
		}
		if strings.TrimSpace(sql) != "" {
			r.sqlLabel = sql
		}
	}
}

// Resolver resolves schemas. It holds no per-request state and may be shared.
type Resolver struct {
	registry     *widgets.Registry
	nodes        node.Lookup
	logger       *slog.Logger
	generalLabel string
	sqlLabel     string
}

// New constructs a Resolver.
func New(options ...Option) *Resolver {
	r := &Resolver{
		logger:       slog.New(slog.DiscardHandler),
		generalLabel: GeneralGroup,
		sqlLabel:     SQLGroup,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.registry == nil {
		r.registry = widgets.NewRegistry()
	}
	return r
}

// Registry returns the control registry in use.
func (r *Resolver) Registry() *widgets.Registry {
	return r.registry
}

// Request carries the inputs of one resolution pass.
type Request struct {
	Info node.ContextInfo
	// Type supplies the schema unless Schema overrides it.
	Type   *schema.ModelType
	Schema []schema.Field
	Mode   schema.Mode
	// Node is the schema node being edited; nil for grids.
	Node     node.Node
	TreeData node.TreeData
	// NoSQL suppresses the SQL preview group.
	NoSQL bool
}

func (req Request) fields() []schema.Field {
	if req.Schema != nil {
		return req.Schema
	}
	if req.Type != nil {
		return req.Type.Schema
	}
	return nil
}

// Resolve groups the fields of the request's schema that apply to its mode.
// It returns nil when no field survives filtering.
func (r *Resolver) Resolve(req Request) []Group {
	var (
		groups []Group
		index  = make(map[string]int)
	)

	for _, desc := range req.fields() {
		if !desc.InMode(req.Mode) {
			continue
		}

		control := widgets.ControlID(strings.TrimSpace(desc.Control))
		if control == "" {
			if desc.Type == schema.TypeUILayout {
				control = widgets.ControlTab
			} else {
				control = r.registry.Lookup(desc.Type, req.Mode)
			}
		}
		if control == "" {
			r.logger.Debug("resolver: field has no control", "field", desc.ID, "type", desc.Type, "mode", req.Mode)
			continue
		}
		cell := widgets.ControlID(strings.TrimSpace(desc.Cell))
		if cell == "" {
			cell = r.registry.Lookup(desc.Type, schema.ModeCell)
		}

		label := desc.Group
		if strings.TrimSpace(label) == "" {
			label = r.generalLabel
		}
		pos, ok := index[label]
		if !ok {
			pos = len(groups)
			index[label] = pos
			groups = append(groups, Group{Label: label})
		}

		field := r.resolveField(req, desc, control, cell)
		groups[pos].Fields = append(groups[pos].Fields, field)
	}

	if len(groups) == 0 {
		return nil
	}

	if !req.NoSQL && req.Node != nil && req.Node.HasSQL() && req.Mode.Interactive() {
		groups = append(groups, Group{
			Label:  r.sqlLabel,
			Fields: []Field{r.sqlField(req)},
		})
	}
	return groups
}

func (r *Resolver) resolveField(req Request, desc schema.Field, control, cell widgets.ControlID) Field {
	compatible := VersionCompatible(desc, req.Info)
	forced := req.Mode == schema.ModeProperties || !compatible

	field := Field{
		Descriptor:        desc,
		Name:              desc.ID,
		Label:             desc.Label,
		Type:              desc.Type,
		Mode:              req.Mode,
		Control:           control,
		Cell:              cell,
		Visible:           desc.Visible,
		Required:          desc.Required,
		VersionCompatible: compatible,
		SubModel:          desc.ModelType,
		Node:              req.Node,
		SchemaNode:        r.schemaNode(desc, req.Node),
		Info:              req.Info,
		TreeData:          req.TreeData,
		CellHeaderClasses: desc.CellHeaderClasses,
	}

	if forced {
		field.Disabled = schema.Literal(true)
		field.Editable = schema.Literal(false)
		field.CanAdd = schema.Literal(false)
		field.CanEdit = schema.Literal(false)
		field.CanDelete = schema.Literal(false)
	} else {
		field.Disabled = desc.Disabled
		field.CanAdd = desc.CanAdd
		field.CanEdit = desc.CanEdit
		field.CanDelete = desc.CanDelete
		if desc.Editable.IsSet() {
			field.Editable = desc.Editable
		} else {
			disabled := desc.Disabled
			field.Editable = schema.Computed(func(row *model.Model) bool {
				return !disabled.Eval(row, false)
			})
		}
	}

	if desc.Type == schema.TypeUILayout {
		field.Name = ""
		field.Cell = ""
		field.Groups = r.Resolve(Request{
			Info:     req.Info,
			Type:     req.Type,
			Schema:   nonNil(desc.Schema),
			Mode:     req.Mode,
			Node:     req.Node,
			TreeData: req.TreeData,
			NoSQL:    true,
		})
	}
	return field
}

func (r *Resolver) sqlField(req Request) Field {
	desc := schema.Field{
		ID:      SQLFieldName,
		Type:    schema.TypeText,
		Label:   r.sqlLabel,
		Control: string(widgets.ControlSQLTab),
	}
	return Field{
		Descriptor:        desc,
		Name:              SQLFieldName,
		Label:             desc.Label,
		Type:              desc.Type,
		Mode:              req.Mode,
		Control:           widgets.ControlSQLTab,
		Visible:           schema.Literal(true),
		Disabled:          schema.Literal(false),
		VersionCompatible: true,
		Node:              req.Node,
		SchemaNode:        req.Node,
		Info:              req.Info,
		TreeData:          req.TreeData,
	}
}

func (r *Resolver) schemaNode(desc schema.Field, fallback node.Node) node.Node {
	name := strings.TrimSpace(desc.Node)
	if name == "" || r.nodes == nil {
		return fallback
	}
	if n, ok := r.nodes.Node(name); ok {
		return n
	}
	r.logger.Warn("resolver: unknown node override", "field", desc.ID, "node", name)
	return fallback
}

// VersionCompatible reports whether desc applies to the connected server.
// Without server metadata every field is compatible.
func VersionCompatible(desc schema.Field, info node.ContextInfo) bool {
	server := info.Server
	if server == nil {
		return true
	}
	if len(desc.ServerType) > 0 && !slices.Contains(desc.ServerType, server.Type) {
		return false
	}
	if desc.MinVersion != 0 && server.Version < desc.MinVersion {
		return false
	}
	if desc.MaxVersion != 0 && server.Version > desc.MaxVersion {
		return false
	}
	return true
}

// nonNil keeps an empty nested schema from falling back to the model type's
// schema.
func nonNil(fields []schema.Field) []schema.Field {
	if fields == nil {
		return []schema.Field{}
	}
	return fields
}
