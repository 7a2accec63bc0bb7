package schema_test

import (
	"encoding/json"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/schema"
)

const mappingYAML = `
models:
  user_mapping:
    idAttribute: oid
    defaults:
      name: null
      um_options: []
    schema:
      - id: name
        type: text
        label: User
        disabled: "oid != null"
      - id: oid
        type: text
        label: OID
        mode: [properties]
      - id: um_options
        type: uniqueColCollection
        label: Options
        group: Options
        model: um_option
        uniqueCol: [umoption]
        columns: [umoption, umvalue]
  um_option:
    schema:
      - id: umoption
        type: text
        label: Option
      - id: umvalue
        type: text
        label: Value
nodes:
  user_mapping:
    label: User Mapping
    parent: foreign_server
    hasSQL: true
    model: user_mapping
`

func TestLoadFS_YAML(t *testing.T) {
	catalog, err := schema.LoadFS(fstest.MapFS{
		"nodes/user_mapping.yaml": {Data: []byte(mappingYAML)},
		"README.md":               {Data: []byte("ignored")},
	})
	if err != nil {
		t.Fatalf("LoadFS returned error: %v", err)
	}

	mt, ok := catalog.Model("user_mapping")
	if !ok {
		t.Fatalf("user_mapping model missing; got %v", catalog.ModelNames())
	}
	if mt.IDAttribute != "oid" {
		t.Fatalf("id attribute mismatch: %q", mt.IDAttribute)
	}
	if diff := cmp.Diff([]string{"name", "oid", "um_options"}, mt.FieldIDs()); diff != "" {
		t.Fatalf("field ids mismatch (-want +got):\n%s", diff)
	}

	options := mt.Schema[2]
	if options.ModelType == nil || options.ModelType.Name != "um_option" {
		t.Fatalf("collection model not linked: %#v", options.ModelType)
	}
	if options.Columns.Kind != schema.ColumnsOrdered {
		t.Fatalf("columns kind mismatch: %v", options.Columns.Kind)
	}
	if !mt.Schema[1].InMode(schema.ModeProperties) || mt.Schema[1].InMode(schema.ModeEdit) {
		t.Fatalf("mode restriction not parsed: %#v", mt.Schema[1].Mode)
	}

	spec, ok := catalog.Node("user_mapping")
	if !ok || !spec.HasSQL || spec.Parent != "foreign_server" {
		t.Fatalf("node spec mismatch: %#v", spec)
	}

	existing := mt.NewModel(map[string]any{"oid": 42, "name": "joe"})
	if !mt.Schema[0].Disabled.Eval(existing, false) {
		t.Fatalf("expected name to be disabled for an existing mapping")
	}
	fresh := mt.NewModel(nil)
	if mt.Schema[0].Disabled.Eval(fresh, true) {
		t.Fatalf("expected name to be enabled for a new mapping")
	}
}

func TestLoadFS_JSON(t *testing.T) {
	doc := `{
	  "models": {
	    "role": {"schema": [{"id": "rolname", "type": "text", "label": "Name", "visible": false}]}
	  },
	  "nodes": {"role": {"label": "Role", "model": "role"}}
	}`
	catalog, err := schema.LoadFS(fstest.MapFS{"role.json": {Data: []byte(doc)}})
	if err != nil {
		t.Fatalf("LoadFS returned error: %v", err)
	}
	mt, _ := catalog.Model("role")
	value, literal := mt.Schema[0].Visible.IsLiteral()
	if !literal || value {
		t.Fatalf("expected literal false visibility, got %v (literal=%v)", value, literal)
	}
	if spec, _ := catalog.Node("role"); spec.Type != "role" {
		t.Fatalf("node type not defaulted from key: %#v", spec)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "duplicate field",
			doc: `
models:
  a:
    schema:
      - {id: x, type: text}
      - {id: x, type: int}
`,
			want: schema.ErrDuplicateField,
		},
		{
			name: "duplicate inside layout",
			doc: `
models:
  a:
    schema:
      - {id: x, type: text}
      - type: uiLayout
        label: Extra
        schema:
          - {id: x, type: int}
`,
			want: schema.ErrDuplicateField,
		},
		{
			name: "unknown collection model",
			doc: `
models:
  a:
    schema:
      - {id: rows, type: collection, model: missing}
`,
			want: schema.ErrUnknownModel,
		},
		{
			name: "unknown node model",
			doc: `
nodes:
  n: {label: N, model: missing}
`,
			want: schema.ErrUnknownModel,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schema.LoadFS(fstest.MapFS{"doc.yaml": {Data: []byte(tc.doc)}})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFS_DuplicateAcrossFiles(t *testing.T) {
	doc := []byte("models:\n  a:\n    schema: [{id: x, type: text}]\n")
	_, err := schema.LoadFS(fstest.MapFS{
		"one.yaml": {Data: doc},
		"two.yaml": {Data: doc},
	})
	if !errors.Is(err, schema.ErrDuplicateDefinition) {
		t.Fatalf("expected duplicate definition error, got %v", err)
	}
}

func TestPredicateDecoding(t *testing.T) {
	var field schema.Field
	if err := yaml.Unmarshal([]byte("id: a\nvisible: true\ndisabled: \"locked == true\"\n"), &field); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if v, ok := field.Visible.IsLiteral(); !ok || !v {
		t.Fatalf("visible should be literal true")
	}
	if field.Required.IsSet() {
		t.Fatalf("required should be unset")
	}
	locked := model.New(map[string]any{"locked": true})
	if !field.Disabled.Eval(locked, false) {
		t.Fatalf("disabled rule should hold for locked model")
	}
	if field.Disabled.Not().Eval(locked, true) {
		t.Fatalf("negated rule should not hold for locked model")
	}

	if err := json.Unmarshal([]byte(`{"id":"a","visible":"a ="}`), &field); err == nil {
		t.Fatalf("expected compile error for malformed rule")
	}

	out, err := json.Marshal(struct {
		A schema.Predicate `json:"a"`
		B schema.Predicate `json:"b"`
	}{A: schema.Literal(true), B: schema.MustExpr("x == 1")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(out), `{"a":true,"b":"x == 1"}`; got != want {
		t.Fatalf("marshal mismatch: got %s want %s", got, want)
	}
}

func TestColumnsDecodingPreservesOrder(t *testing.T) {
	var fromJSON schema.Columns
	if err := json.Unmarshal([]byte(`{"zeta":{"index":2},"alpha":"wide","hidden":null}`), &fromJSON); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	var fromYAML schema.Columns
	if err := yaml.Unmarshal([]byte("zeta: {index: 2}\nalpha: wide\nhidden: null\n"), &fromYAML); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}

	for name, cols := range map[string]schema.Columns{"json": fromJSON, "yaml": fromYAML} {
		if cols.Kind != schema.ColumnsConfigured {
			t.Fatalf("%s: kind mismatch: %v", name, cols.Kind)
		}
		if diff := cmp.Diff([]string{"zeta", "alpha", "hidden"}, cols.Names); diff != "" {
			t.Fatalf("%s: order mismatch (-want +got):\n%s", name, diff)
		}
		zeta, _ := cols.Lookup("zeta")
		if zeta.Index == nil || *zeta.Index != 2 {
			t.Fatalf("%s: zeta index not decoded: %#v", name, zeta)
		}
		alpha, _ := cols.Lookup("alpha")
		if alpha.Class != "wide" || !alpha.Shorthand {
			t.Fatalf("%s: class shorthand not decoded: %#v", name, alpha)
		}
		hidden, _ := cols.Lookup("hidden")
		if !hidden.Hidden {
			t.Fatalf("%s: null entry should hide the column", name)
		}
	}

	out, err := json.Marshal(fromJSON)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(out), `{"zeta":{"index":2},"alpha":"wide","hidden":null}`; got != want {
		t.Fatalf("round trip mismatch: got %s want %s", got, want)
	}
}

func TestModelTypeDefaults(t *testing.T) {
	mt := &schema.ModelType{
		Name:        "row",
		IDAttribute: "oid",
		Defaults:    map[string]any{"kind": "plain"},
	}
	m := mt.NewModel(map[string]any{"oid": 7})
	if m.Get("kind") != "plain" {
		t.Fatalf("defaults not applied: %#v", m.Attributes())
	}
	if m.IsNew() {
		t.Fatalf("model with oid should not be new")
	}
	child := mt.Factory()(nil)
	if !child.IsNew() || child.IDAttribute() != "oid" {
		t.Fatalf("factory child mismatch: new=%v id=%q", child.IsNew(), child.IDAttribute())
	}
}
