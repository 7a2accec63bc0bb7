package node

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-adminform/pkg/schema"
)

// DefaultURLBase prefixes every generated node URL.
const DefaultURLBase = "/browser/"

const serverUserToken = "$server.user"

var operationPaths = map[string]string{
	"create":     "obj",
	"drop":       "obj",
	"edit":       "obj",
	"properties": "obj",
	"statistics": "stats",
}

// Static is a Node described by a catalog NodeSpec.
type Static struct {
	spec schema.NodeSpec
}

// NewStatic wraps spec.
func NewStatic(spec schema.NodeSpec) *Static {
	return &Static{spec: spec}
}

// FromCatalog builds a Set with one Static node per catalog node spec.
func FromCatalog(catalog *schema.Catalog) Set {
	out := make(Set)
	if catalog == nil {
		return out
	}
	for _, typ := range catalog.NodeTypes() {
		spec, _ := catalog.Node(typ)
		out.Add(NewStatic(spec))
	}
	return out
}

func (s *Static) Type() string          { return s.spec.Type }
func (s *Static) HasSQL() bool          { return s.spec.HasSQL }
func (s *Static) Help() schema.HelpRefs { return s.spec.Help }

// Label returns the display label, defaulting to the type.
func (s *Static) Label() string {
	if s.spec.Label != "" {
		return s.spec.Label
	}
	return s.spec.Type
}

// Spec returns the underlying spec.
func (s *Static) Spec() schema.NodeSpec {
	return s.spec
}

// GenerateURL renders <base><type>/<kind>/<ancestor ids...>[/<id>]. Ancestor
// ids come from info in NodeSpec.Ancestors order.
func (s *Static) GenerateURL(kind string, data TreeData, existing bool, info ContextInfo) (string, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", fmt.Errorf("node: %s: url kind is required", s.spec.Type)
	}
	if mapped, ok := operationPaths[kind]; ok {
		kind = mapped
	}

	base := s.spec.URLBase
	if base == "" {
		base = DefaultURLBase
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(s.spec.Type))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(kind))
	b.WriteByte('/')

	for _, typ := range s.spec.Ancestors {
		ancestor, ok := info.Ancestor(typ)
		if !ok {
			return "", fmt.Errorf("node: %s: context is missing ancestor %q", s.spec.Type, typ)
		}
		b.WriteString(url.PathEscape(ancestor.ID))
		b.WriteByte('/')
	}
	if existing {
		if strings.TrimSpace(data.ID) == "" {
			return "", fmt.Errorf("node: %s: existing record has no id", s.spec.Type)
		}
		b.WriteString(url.PathEscape(data.ID))
	}
	return b.String(), nil
}

// NewAttributes returns the attributes seeding a record created under this
// node. The "$server.user" placeholder is replaced with the connected user.
func (s *Static) NewAttributes(info ContextInfo) map[string]any {
	out := make(map[string]any, len(s.spec.NewDefaults))
	for key, value := range s.spec.NewDefaults {
		if str, ok := value.(string); ok && str == serverUserToken {
			if info.Server == nil || info.Server.User == "" {
				continue
			}
			value = info.Server.User
		}
		out[key] = value
	}
	return out
}
