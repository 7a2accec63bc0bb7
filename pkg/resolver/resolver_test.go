package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

func sqlNode(t *testing.T) node.Node {
	t.Helper()
	return node.NewStatic(schema.NodeSpec{Type: "user_mapping", HasSQL: true})
}

func labels(groups []Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Label)
	}
	return out
}

func names(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

func TestResolve_ModeFiltering(t *testing.T) {
	fields := []schema.Field{
		{ID: "always", Type: schema.TypeText},
		{ID: "props", Type: schema.TypeText, Mode: []schema.Mode{schema.ModeProperties}},
		{ID: "editing", Type: schema.TypeText, Mode: []schema.Mode{schema.ModeEdit, schema.ModeCreate}},
	}
	r := New()

	cases := map[schema.Mode][]string{
		schema.ModeProperties: {"always", "props"},
		schema.ModeEdit:       {"always", "editing"},
		schema.ModeCreate:     {"always", "editing"},
		schema.ModeCell:       {"always"},
	}
	for mode, want := range cases {
		groups := r.Resolve(Request{Schema: fields, Mode: mode})
		if len(groups) != 1 {
			t.Fatalf("%s: expected a single group, got %v", mode, labels(groups))
		}
		if diff := cmp.Diff(want, names(groups[0].Fields)); diff != "" {
			t.Fatalf("%s: fields mismatch (-want +got):\n%s", mode, diff)
		}
	}
}

func TestResolve_EmptyReturnsNil(t *testing.T) {
	r := New()
	fields := []schema.Field{{ID: "a", Type: schema.TypeText, Mode: []schema.Mode{schema.ModeProperties}}}
	if groups := r.Resolve(Request{Schema: fields, Mode: schema.ModeEdit, Node: sqlNode(t)}); groups != nil {
		t.Fatalf("expected nil groups, got %v", labels(groups))
	}
	if groups := r.Resolve(Request{Mode: schema.ModeEdit}); groups != nil {
		t.Fatalf("expected nil groups without schema")
	}
}

func TestResolve_VersionGating(t *testing.T) {
	desc := schema.Field{ID: "opt", Type: schema.TypeText, MinVersion: 90500}
	r := New()

	cases := []struct {
		name       string
		info       node.ContextInfo
		compatible bool
	}{
		{name: "below min", info: node.ContextInfo{Server: &node.ServerInfo{Type: "pg", Version: 90499}}, compatible: false},
		{name: "equal min", info: node.ContextInfo{Server: &node.ServerInfo{Type: "pg", Version: 90500}}, compatible: true},
		{name: "above min", info: node.ContextInfo{Server: &node.ServerInfo{Type: "pg", Version: 150000}}, compatible: true},
		{name: "no server", info: node.ContextInfo{}, compatible: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := r.Resolve(Request{Schema: []schema.Field{desc}, Mode: schema.ModeEdit, Info: tc.info})
			f := groups[0].Fields[0]
			if f.VersionCompatible != tc.compatible {
				t.Fatalf("VersionCompatible = %v, want %v", f.VersionCompatible, tc.compatible)
			}
			if f.IsDisabled(model.New(nil)) == tc.compatible {
				t.Fatalf("disabled should be the inverse of compatibility")
			}
		})
	}
}

func TestVersionCompatible_ServerTypeAndMax(t *testing.T) {
	desc := schema.Field{ServerType: []string{"ppas"}, MaxVersion: 100000}
	if VersionCompatible(desc, node.ContextInfo{Server: &node.ServerInfo{Type: "pg", Version: 90000}}) {
		t.Fatalf("server type outside the set should be incompatible")
	}
	if !VersionCompatible(desc, node.ContextInfo{Server: &node.ServerInfo{Type: "ppas", Version: 100000}}) {
		t.Fatalf("max version is inclusive")
	}
	if VersionCompatible(desc, node.ContextInfo{Server: &node.ServerInfo{Type: "ppas", Version: 100001}}) {
		t.Fatalf("above max version should be incompatible")
	}
}

func TestResolve_PoliciesAndControls(t *testing.T) {
	fields := []schema.Field{
		{ID: "name", Type: schema.TypeText, Disabled: schema.MustExpr("oid != null")},
		{ID: "count", Type: schema.TypeInt, Editable: schema.Literal(false)},
		{ID: "color", Type: schema.FieldType("color-picker")},
		{ID: "custom", Type: schema.TypeText, Control: "code", Cell: "code-cell"},
		{ID: "rows", Type: schema.TypeCollection, CanAdd: schema.Literal(true), Group: "Rows"},
	}
	r := New()
	existing := model.New(map[string]any{"oid": 1})
	fresh := model.New(nil)

	edit := r.Resolve(Request{Schema: fields, Mode: schema.ModeEdit})
	if diff := cmp.Diff([]string{GeneralGroup, "Rows"}, labels(edit)); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}
	general := edit[0].Fields
	if general[0].Control != widgets.ControlInput || general[0].Cell != widgets.CellString {
		t.Fatalf("text control mismatch: %q/%q", general[0].Control, general[0].Cell)
	}
	if !general[0].IsDisabled(existing) || general[0].IsDisabled(fresh) {
		t.Fatalf("disabled predicate not carried through")
	}
	if general[0].IsEditable(existing) || !general[0].IsEditable(fresh) {
		t.Fatalf("default editable should follow the row's disabled state")
	}
	if general[1].Control != widgets.ControlInteger || general[1].IsEditable(fresh) {
		t.Fatalf("explicit editable should win: %#v", general[1].Editable)
	}
	if general[2].Control != "color-picker" {
		t.Fatalf("custom type should pass through, got %q", general[2].Control)
	}
	if general[3].Control != "code" || general[3].Cell != "code-cell" {
		t.Fatalf("explicit overrides should win: %q/%q", general[3].Control, general[3].Cell)
	}
	if !edit[1].Fields[0].AllowAdd(fresh) {
		t.Fatalf("canAdd should be carried in edit mode")
	}

	props := r.Resolve(Request{Schema: fields, Mode: schema.ModeProperties})
	for _, f := range append(props[0].Fields, props[1].Fields...) {
		if !f.IsDisabled(fresh) || f.IsEditable(fresh) || f.AllowAdd(fresh) || f.AllowEdit(fresh) || f.AllowDelete(fresh) {
			t.Fatalf("properties mode must force-disable %s", f.Name)
		}
	}
	if props[0].Fields[0].Control != widgets.ControlUneditableInput {
		t.Fatalf("properties control mismatch: %q", props[0].Fields[0].Control)
	}
}

func TestResolve_SQLGroup(t *testing.T) {
	fields := []schema.Field{{ID: "name", Type: schema.TypeText}}
	r := New()
	n := sqlNode(t)

	for _, mode := range []schema.Mode{schema.ModeEdit, schema.ModeCreate} {
		groups := r.Resolve(Request{Schema: fields, Mode: mode, Node: n, TreeData: node.TreeData{ID: "3"}})
		if diff := cmp.Diff([]string{GeneralGroup, SQLGroup}, labels(groups)); diff != "" {
			t.Fatalf("%s: groups mismatch (-want +got):\n%s", mode, diff)
		}
		sql := groups[1].Fields[0]
		if sql.Name != SQLFieldName || sql.Control != widgets.ControlSQLTab {
			t.Fatalf("sql field mismatch: %#v", sql)
		}
		if !sql.IsVisible(nil) || sql.IsDisabled(nil) || sql.SchemaNode != n || sql.TreeData.ID != "3" {
			t.Fatalf("sql field policy mismatch: %#v", sql)
		}
	}

	if groups := r.Resolve(Request{Schema: fields, Mode: schema.ModeProperties, Node: n}); len(groups) != 1 {
		t.Fatalf("properties mode should not add the SQL group: %v", labels(groups))
	}
	if groups := r.Resolve(Request{Schema: fields, Mode: schema.ModeEdit, Node: n, NoSQL: true}); len(groups) != 1 {
		t.Fatalf("NoSQL should suppress the SQL group: %v", labels(groups))
	}
	plain := node.NewStatic(schema.NodeSpec{Type: "role"})
	if groups := r.Resolve(Request{Schema: fields, Mode: schema.ModeEdit, Node: plain}); len(groups) != 1 {
		t.Fatalf("nodes without SQL support should not add the SQL group")
	}
}

func TestResolve_LayoutRecursion(t *testing.T) {
	fields := []schema.Field{
		{ID: "name", Type: schema.TypeText},
		{
			Type:  schema.TypeUILayout,
			Label: "Security",
			Group: "Security",
			Schema: []schema.Field{
				{ID: "owner", Type: schema.TypeText, Group: "Owner"},
				{ID: "acl", Type: schema.TypeText, Group: "Privileges"},
			},
		},
		{Type: schema.TypeUILayout, Label: "Empty", Control: "fieldset", Schema: []schema.Field{
			{ID: "hidden", Type: schema.TypeText, Mode: []schema.Mode{schema.ModeProperties}},
		}},
	}
	r := New()
	groups := r.Resolve(Request{Schema: fields, Mode: schema.ModeEdit, Node: sqlNode(t)})
	if diff := cmp.Diff([]string{GeneralGroup, "Security", SQLGroup}, labels(groups)); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}

	layout := groups[1].Fields[0]
	if layout.Name != "" || layout.Cell != "" || layout.Control != widgets.ControlTab {
		t.Fatalf("layout field mismatch: name=%q cell=%q control=%q", layout.Name, layout.Cell, layout.Control)
	}
	if diff := cmp.Diff([]string{"Owner", "Privileges"}, labels(layout.Groups)); diff != "" {
		t.Fatalf("nested groups mismatch (-want +got):\n%s", diff)
	}

	empty := groups[0].Fields[1]
	if empty.Control != "fieldset" || empty.Groups != nil {
		t.Fatalf("empty layout should keep its control and resolve to nil groups: %#v", empty)
	}
}

type nodeSet map[string]node.Node

func (s nodeSet) Node(typ string) (node.Node, bool) {
	n, ok := s[typ]
	return n, ok
}

func TestResolve_NodeOverride(t *testing.T) {
	owner := node.NewStatic(schema.NodeSpec{Type: "role"})
	r := New(WithNodes(nodeSet{"role": owner}))
	base := sqlNode(t)
	groups := r.Resolve(Request{
		Schema: []schema.Field{
			{ID: "owner", Type: schema.TypeText, Node: "role"},
			{ID: "name", Type: schema.TypeText, Node: "missing"},
		},
		Mode: schema.ModeEdit,
		Node: base,
	})
	fields := groups[0].Fields
	if fields[0].SchemaNode != owner || fields[0].Node != base {
		t.Fatalf("node override not applied")
	}
	if fields[1].SchemaNode != base {
		t.Fatalf("unknown override should fall back to the edited node")
	}
}

func TestGridColumns(t *testing.T) {
	idx := func(v int) *int { return &v }
	mt := &schema.ModelType{
		Name: "row",
		Schema: []schema.Field{
			{ID: "a", Type: schema.TypeText},
			{ID: "b", Type: schema.TypeInt, CellHeaderClasses: "narrow"},
			{Type: schema.TypeUILayout, Label: "layout", Schema: []schema.Field{{ID: "nested", Type: schema.TypeText}}},
			{ID: "c", Type: schema.TypeText},
			{ID: "d", Type: schema.TypeText},
		},
	}

	cases := []struct {
		name    string
		cols    schema.Columns
		want    []string
		classes map[string]string
	}{
		{name: "natural", want: []string{"a", "b", "c", "d"}, classes: map[string]string{"b": "narrow"}},
		{name: "ordered", cols: schema.OrderedColumns("d", "a"), want: []string{"d", "a"}},
		{
			name: "configured",
			cols: schema.ConfiguredColumns(
				schema.ColumnEntry{Name: "c", Config: schema.ColumnConfig{Class: "wide", Shorthand: true}},
				schema.ColumnEntry{Name: "a", Config: schema.ColumnConfig{Index: idx(0)}},
				schema.ColumnEntry{Name: "b", Config: schema.ColumnConfig{Class: "x"}},
				schema.ColumnEntry{Name: "d", Config: schema.ColumnConfig{Hidden: true}},
			),
			want:    []string{"a", "b", "c"},
			classes: map[string]string{"b": "narrow x", "c": "wide"},
		},
	}

	r := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			columns, groups := r.GridColumns(node.ContextInfo{}, mt, schema.ModeEdit, tc.cols)
			if len(groups) != 1 {
				t.Fatalf("expected the resolved groups, got %d", len(groups))
			}
			got := make([]string, 0, len(columns))
			for _, col := range columns {
				got = append(got, col.Field.Name)
				if want := tc.classes[col.Field.Name]; col.HeaderClasses != want {
					t.Fatalf("%s header classes = %q, want %q", col.Field.Name, col.HeaderClasses, want)
				}
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("columns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
