// Package openapi builds catalog model types from the component schemas of
// an OpenAPI 3 document.
//
// Every object component becomes a model type named after the component.
// Scalar properties map onto field types, arrays of component references
// become collections, and the "x-adminform" extension overlays any field
// option (group, mode, control, predicates, uniqueCol, ...). A component
// level "x-adminform" may declare the id attribute and a node:
//
//	components:
//	  schemas:
//	    foreign_server:
//	      x-adminform:
//	        idAttribute: oid
//	        node: {type: foreign_server, label: Foreign Server, hasSQL: true}
package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-adminform/pkg/schema"
)

// ExtensionKey is the vendor extension carrying adminform options.
const ExtensionKey = "x-adminform"

// ErrNoSchemas is returned for documents without component schemas.
var ErrNoSchemas = errors.New("openapi: document has no component schemas")

// Option customises an Importer.
type Option func(*Importer)

// WithLogger sets the logger skipped properties are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithExternalRefs allows $ref to point outside the document.
func WithExternalRefs(allow bool) Option {
	return func(im *Importer) {
		im.externalRefs = allow
	}
}

// Importer converts OpenAPI documents into catalogs.
type Importer struct {
	logger       *slog.Logger
	externalRefs bool
}

// NewImporter constructs an Importer.
func NewImporter(options ...Option) *Importer {
	im := &Importer{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range options {
		if opt != nil {
			opt(im)
		}
	}
	return im
}

// ImportFile reads and imports the document at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*schema.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFile(path), raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: %s: %w", path, err)
	}
	return im.Import(ctx, doc)
}

// ImportFS reads and imports the document name from fsys.
func (im *Importer) ImportFS(ctx context.Context, fsys fs.FS, name string) (*schema.Catalog, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", name, err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFS(name), raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: %s: %w", name, err)
	}
	return im.Import(ctx, doc)
}

type componentExt struct {
	IDAttribute string           `json:"idAttribute"`
	Defaults    map[string]any   `json:"defaults"`
	Node        *schema.NodeSpec `json:"node"`
}

type fieldExt struct {
	schema.Field
	Order *int `json:"order"`
	Skip  bool `json:"skip"`
}

// Import converts the component schemas of doc into a linked catalog.
func (im *Importer) Import(ctx context.Context, doc schema.Document) (*schema.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: im.externalRefs,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", doc.Location(), err)
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSchemas, doc.Location())
	}
	order := propertyOrder(raw)

	cat := schema.NewCatalog()
	names := make([]string, 0, len(spec.Components.Schemas))
	for name := range spec.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := spec.Components.Schemas[name]
		if ref == nil || ref.Value == nil || !isObject(ref.Value) {
			im.logger.Debug("openapi: skipping non-object component", "component", name)
			continue
		}
		mt, node, err := im.modelType(name, ref.Value, order[name])
		if err != nil {
			return nil, fmt.Errorf("openapi: component %s: %w", name, err)
		}
		if err := cat.AddModel(mt); err != nil {
			return nil, fmt.Errorf("openapi: component %s: %w", name, err)
		}
		if node != nil {
			if err := cat.AddNode(*node); err != nil {
				return nil, fmt.Errorf("openapi: component %s: %w", name, err)
			}
		}
	}
	if err := cat.Link(); err != nil {
		return nil, fmt.Errorf("openapi: %s: %w", doc.Location(), err)
	}
	return cat, nil
}

type property struct {
	name     string
	ref      *openapi3.SchemaRef
	required bool
}

func (im *Importer) modelType(name string, s *openapi3.Schema, docOrder []string) (*schema.ModelType, *schema.NodeSpec, error) {
	var ext componentExt
	if err := decodeExtension(s.Extensions, &ext); err != nil {
		return nil, nil, err
	}
	mt := &schema.ModelType{Name: name, IDAttribute: ext.IDAttribute}

	props := make(map[string]*property)
	collect(s, props, map[*openapi3.Schema]bool{})

	rank := make(map[string]int, len(docOrder))
	for i, key := range docOrder {
		rank[key] = i
	}
	type ranked struct {
		field schema.Field
		pos   int
	}
	var fields []ranked
	for key, prop := range props {
		f, pos, ok, err := im.field(name, prop)
		if err != nil {
			return nil, nil, fmt.Errorf("property %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if pos == nil {
			p, seen := rank[key]
			if !seen {
				p = len(docOrder)
			}
			pos = &p
		}
		fields = append(fields, ranked{field: f, pos: *pos})
		if def := prop.ref.Value.Default; def != nil {
			if mt.Defaults == nil {
				mt.Defaults = make(map[string]any)
			}
			mt.Defaults[key] = def
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].pos != fields[j].pos {
			return fields[i].pos < fields[j].pos
		}
		return fields[i].field.ID < fields[j].field.ID
	})
	for _, f := range fields {
		mt.Schema = append(mt.Schema, f.field)
	}
	for key, value := range ext.Defaults {
		if mt.Defaults == nil {
			mt.Defaults = make(map[string]any)
		}
		mt.Defaults[key] = value
	}

	if ext.Node == nil {
		return mt, nil, nil
	}
	node := *ext.Node
	if node.Model == "" {
		node.Model = name
	}
	if node.Type == "" {
		node.Type = name
	}
	return mt, &node, nil
}

// collect gathers properties of s and its allOf members.
func collect(s *openapi3.Schema, props map[string]*property, seen map[*openapi3.Schema]bool) {
	if s == nil || seen[s] {
		return
	}
	seen[s] = true
	for _, sub := range s.AllOf {
		if sub != nil {
			collect(sub.Value, props, seen)
		}
	}
	for key, ref := range s.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		props[key] = &property{name: key, ref: ref}
	}
	for _, key := range s.Required {
		if prop, ok := props[key]; ok {
			prop.required = true
		}
	}
}

func (im *Importer) field(component string, prop *property) (schema.Field, *int, bool, error) {
	s := prop.ref.Value
	f := schema.Field{
		ID:          prop.name,
		Label:       label(prop.name, s.Title),
		HelpMessage: s.Description,
	}
	switch typeOf(s) {
	case "array":
		if s.Items == nil || s.Items.Value == nil {
			im.logger.Debug("openapi: skipping untyped array", "component", component, "property", prop.name)
			return f, nil, false, nil
		}
		model := refName(s.Items.Ref)
		if model == "" {
			im.logger.Debug("openapi: skipping array of inline items", "component", component, "property", prop.name)
			return f, nil, false, nil
		}
		f.Type = schema.TypeCollection
		f.Model = model
		f.CanAdd = schema.Literal(!s.ReadOnly)
		f.CanDelete = schema.Literal(!s.ReadOnly)
	case "integer":
		f.Type = schema.TypeInt
		f.Min, f.Max = s.Min, s.Max
	case "number":
		f.Type = schema.TypeNumeric
		f.Min, f.Max = s.Min, s.Max
	case "boolean":
		f.Type = schema.TypeSwitch
	case "string":
		switch {
		case len(s.Enum) > 0:
			f.Type = schema.TypeOptions
			for _, v := range s.Enum {
				f.Options = append(f.Options, schema.Option{Label: fmt.Sprint(v), Value: v})
			}
		case s.Format == "date" || s.Format == "date-time":
			f.Type = schema.TypeDate
		case s.Format == "multiline" || s.Format == "textarea":
			f.Type = schema.TypeMultiline
		default:
			f.Type = schema.TypeText
		}
		if s.MaxLength != nil {
			f.MaxLength = int(*s.MaxLength)
		}
	default:
		if _, ok := s.Extensions[ExtensionKey]; !ok {
			im.logger.Debug("openapi: skipping property", "component", component, "property", prop.name, "type", typeOf(s))
			return f, nil, false, nil
		}
	}
	if prop.required {
		f.Required = schema.Literal(true)
	}
	if s.ReadOnly {
		f.Disabled = schema.Literal(true)
	}

	ext := fieldExt{Field: f}
	if err := decodeExtension(s.Extensions, &ext); err != nil {
		return f, nil, false, err
	}
	if ext.Skip {
		return f, nil, false, nil
	}
	ext.Field.ID = prop.name
	if ext.Field.Type == "" {
		return f, nil, false, fmt.Errorf("no field type for %q", typeOf(s))
	}
	if len(ext.Field.UniqueCol) > 0 && ext.Field.Type == schema.TypeCollection {
		ext.Field.Type = schema.TypeUniqueColCollection
	}
	return ext.Field, ext.Order, true, nil
}

func decodeExtension(extensions map[string]any, target any) error {
	raw, ok := extensions[ExtensionKey]
	if !ok || raw == nil {
		return nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", ExtensionKey, err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%s: %w", ExtensionKey, err)
	}
	return nil
}

func typeOf(s *openapi3.Schema) string {
	if s.Type == nil {
		if len(s.Properties) > 0 || len(s.AllOf) > 0 {
			return "object"
		}
		return ""
	}
	values := s.Type.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func isObject(s *openapi3.Schema) bool {
	return typeOf(s) == "object"
}

func refName(ref string) string {
	const prefix = "#/components/schemas/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	return strings.TrimPrefix(ref, prefix)
}

func label(name, title string) string {
	if title != "" {
		return title
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// propertyOrder returns the property keys of every component in document
// order. kin-openapi only keeps maps.
func propertyOrder(raw []byte) map[string][]string {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil || len(root.Content) == 0 {
		return nil
	}
	schemas := lookup(lookup(root.Content[0], "components"), "schemas")
	if schemas == nil || schemas.Kind != yaml.MappingNode {
		return nil
	}
	out := make(map[string][]string)
	for i := 0; i+1 < len(schemas.Content); i += 2 {
		name := schemas.Content[i].Value
		props := lookup(schemas.Content[i+1], "properties")
		if props == nil || props.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(props.Content); j += 2 {
			out[name] = append(out[name], props.Content[j].Value)
		}
	}
	return out
}

func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
