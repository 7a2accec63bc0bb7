package node

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-adminform/pkg/schema"
)

func userMappingSpec() schema.NodeSpec {
	return schema.NodeSpec{
		Type:        "user_mapping",
		Label:       "User Mapping",
		Parent:      "foreign_server",
		Ancestors:   []string{"server", "database", "foreign_data_wrapper", "foreign_server"},
		HasSQL:      true,
		Model:       "user_mapping",
		NewDefaults: map[string]any{"name": "$server.user", "um_options": []any{}},
	}
}

func TestStaticGenerateURL(t *testing.T) {
	n := NewStatic(userMappingSpec())
	info := ContextInfo{
		Server: &ServerInfo{ID: "1", Type: "pg", Version: 150000, User: "postgres"},
		Ancestors: []Ancestor{
			{Type: "database", ID: "13"},
			{Type: "foreign_data_wrapper", ID: "7"},
			{Type: "foreign_server", ID: "9"},
		},
	}

	cases := []struct {
		name     string
		kind     string
		data     TreeData
		existing bool
		want     string
	}{
		{name: "create preview", kind: "msql", want: "/browser/user_mapping/msql/1/13/7/9/"},
		{name: "alter preview", kind: "msql", data: TreeData{ID: "42"}, existing: true, want: "/browser/user_mapping/msql/1/13/7/9/42"},
		{name: "operation alias", kind: "properties", data: TreeData{ID: "42"}, existing: true, want: "/browser/user_mapping/obj/1/13/7/9/42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.GenerateURL(tc.kind, tc.data, tc.existing, info)
			if err != nil {
				t.Fatalf("GenerateURL returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("GenerateURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStaticGenerateURLErrors(t *testing.T) {
	n := NewStatic(userMappingSpec())
	if _, err := n.GenerateURL("msql", TreeData{}, false, ContextInfo{}); err == nil {
		t.Fatalf("expected missing ancestor error")
	}
	bare := NewStatic(schema.NodeSpec{Type: "role"})
	if _, err := bare.GenerateURL("msql", TreeData{}, true, ContextInfo{}); err == nil {
		t.Fatalf("expected missing id error")
	}
	if _, err := bare.GenerateURL(" ", TreeData{}, false, ContextInfo{}); err == nil {
		t.Fatalf("expected missing kind error")
	}
}

func TestStaticNewAttributes(t *testing.T) {
	n := NewStatic(userMappingSpec())
	got := n.NewAttributes(ContextInfo{Server: &ServerInfo{User: "alice"}})
	want := map[string]any{"name": "alice", "um_options": []any{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}
	if _, ok := n.NewAttributes(ContextInfo{})["name"]; ok {
		t.Fatalf("placeholder should be dropped without server info")
	}
}

func TestFromCatalog(t *testing.T) {
	catalog := schema.NewCatalog()
	if err := catalog.AddModel(&schema.ModelType{Name: "user_mapping"}); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if err := catalog.AddNode(userMappingSpec()); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	set := FromCatalog(catalog)
	n, ok := set.Node("user_mapping")
	if !ok || !n.HasSQL() || n.Label() != "User Mapping" {
		t.Fatalf("node lookup mismatch: %#v", n)
	}
}

func TestParseAncestors(t *testing.T) {
	got, err := ParseAncestors([]string{"server:1", "database:5"})
	if err != nil {
		t.Fatalf("ParseAncestors: %v", err)
	}
	want := []Ancestor{{Type: "server", ID: "1"}, {Type: "database", ID: "5"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ancestors (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"server", ":1", "server:"} {
		if _, err := ParseAncestors([]string{bad}); err == nil {
			t.Fatalf("ParseAncestors(%q) expected error", bad)
		}
	}
}
