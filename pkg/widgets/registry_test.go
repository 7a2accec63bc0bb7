package widgets

import (
	"testing"

	"github.com/goliatone/go-adminform/pkg/schema"
)

func TestLookup_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		name   string
		typ    schema.FieldType
		mode   schema.Mode
		expect ControlID
	}{
		{name: "int properties", typ: schema.TypeInt, mode: schema.ModeProperties, expect: ControlUneditableInput},
		{name: "int edit", typ: schema.TypeInt, mode: schema.ModeEdit, expect: ControlInteger},
		{name: "int create", typ: schema.TypeInt, mode: schema.ModeCreate, expect: ControlInteger},
		{name: "int control", typ: schema.TypeInt, mode: schema.ModeControl, expect: ControlInteger},
		{name: "int cell", typ: schema.TypeInt, mode: schema.ModeCell, expect: CellInteger},
		{name: "options properties", typ: schema.TypeOptions, mode: schema.ModeProperties, expect: ControlReadonlyOption},
		{name: "options cell", typ: schema.TypeOptions, mode: schema.ModeCell, expect: CellSelect},
		{name: "numeric cell", typ: schema.TypeNumeric, mode: schema.ModeCell, expect: CellNumber},
		{name: "single ignores mode", typ: schema.TypeBoolean, mode: schema.ModeCell, expect: ControlBoolean},
		{name: "date edit", typ: schema.TypeDate, mode: schema.ModeEdit, expect: ControlDatepicker},
		{name: "unknown mode falls back", typ: schema.TypeText, mode: schema.Mode("preview"), expect: ControlUneditableInput},
		{name: "unique collection edit", typ: schema.TypeUniqueColCollection, mode: schema.ModeEdit, expect: ControlUniqueCollection},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := reg.Lookup(tc.typ, tc.mode); got != tc.expect {
				t.Fatalf("Lookup(%q, %q) = %q, want %q", tc.typ, tc.mode, got, tc.expect)
			}
		})
	}
}

func TestLookup_UnknownTypePassesThrough(t *testing.T) {
	reg := NewRegistry()
	if got := reg.Lookup(schema.FieldType("color-picker"), schema.ModeEdit); got != "color-picker" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := reg.Lookup(schema.TypeUILayout, schema.ModeEdit); got != ControlID(schema.TypeUILayout) {
		t.Fatalf("expected uiLayout passthrough, got %q", got)
	}
}

func TestMapping_OutOfRangeFallsBack(t *testing.T) {
	m := PerMode("a", "b", "c")
	if got := m.At(7); got != "a" {
		t.Fatalf("expected fallback to slot 0, got %q", got)
	}
	if got := m.At(-1); got != "a" {
		t.Fatalf("expected fallback to slot 0, got %q", got)
	}
	if got := (Mapping{}).At(1); got != "" {
		t.Fatalf("expected empty id for empty mapping, got %q", got)
	}
}

func TestRegister_CloneIsolation(t *testing.T) {
	base := NewRegistry()
	clone := base.Clone()
	if err := clone.Register("color", Single("color-picker")); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if got := clone.Lookup("color", schema.ModeEdit); got != "color-picker" {
		t.Fatalf("clone lookup mismatch: %q", got)
	}
	if _, ok := base.Mapping("color"); ok {
		t.Fatalf("registration leaked into base registry")
	}
	if err := base.Register("  ", Single("x")); err == nil {
		t.Fatalf("expected error for blank type")
	}
	if err := base.Register("x", Mapping{}); err == nil {
		t.Fatalf("expected error for empty mapping")
	}
	if len(base.Types()) != 11 {
		t.Fatalf("expected 11 builtin types, got %d", len(base.Types()))
	}
}
