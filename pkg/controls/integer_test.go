package controls

import (
	"testing"

	"github.com/goliatone/go-adminform/pkg/schema"
)

func portType() *schema.ModelType {
	return &schema.ModelType{Name: "server", Schema: []schema.Field{
		{ID: "port", Type: schema.TypeInt, Label: "Port", Min: ptr(1), Max: ptr(65535)},
	}}
}

func TestIntegerChangeValidation(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		committed bool
		wantValue any
		wantError string
	}{
		{name: "not a number", raw: "54a", wantValue: int64(5432), wantError: "'Port' must be an integer."},
		{name: "decimal", raw: "1.5", wantValue: int64(5432), wantError: "'Port' must be an integer."},
		{name: "below min", raw: "0", wantValue: int64(5432), wantError: "'Port' must be greater than or equal to 1."},
		{name: "negative reports min only", raw: "-70000", wantValue: int64(5432), wantError: "'Port' must be greater than or equal to 1."},
		{name: "above max", raw: "70000", wantValue: int64(5432), wantError: "'Port' must be less than or equal to 65535."},
		{name: "valid", raw: " 6432 ", committed: true, wantValue: int64(6432)},
		{name: "empty clears", raw: "", committed: true, wantValue: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			mt := portType()
			m := mt.NewModel(map[string]any{"port": int64(5432)})
			ctrl := fx.mount(t, fx.field(t, mt, schema.ModeEdit, "port"), m).(*Integer)

			if got := ctrl.Change(tc.raw); got != tc.committed {
				t.Fatalf("Change(%q) = %v, want %v", tc.raw, got, tc.committed)
			}
			if got := m.Get("port"); got != tc.wantValue {
				t.Fatalf("port = %#v, want %#v", got, tc.wantValue)
			}
			if got := m.ErrorAt("port"); got != tc.wantError {
				t.Fatalf("error = %q, want %q", got, tc.wantError)
			}
			notes := ctrl.Element().FindByClass("pgadmin-control-error-message")
			if tc.wantError == "" {
				if len(notes) != 0 {
					t.Fatalf("unexpected error message rendered")
				}
				return
			}
			if len(notes) != 1 || notes[0].Text() != tc.wantError {
				t.Fatalf("rendered error messages = %d", len(notes))
			}
		})
	}
}

func TestIntegerCommitDoesNotReRenderItself(t *testing.T) {
	fx := newFixture(t)
	mt := portType()
	m := mt.NewModel(nil)
	ctrl := fx.mount(t, fx.field(t, mt, schema.ModeEdit, "port"), m).(*Integer)

	if !ctrl.Change("5432") {
		t.Fatalf("valid value rejected")
	}
	if ctrl.Renders() != 1 {
		t.Fatalf("own commit re-rendered the control: %d renders", ctrl.Renders())
	}
	if got := firstTag(t, ctrl.Element(), "input").AttrOr("value", ""); got != "5432" {
		t.Fatalf("input value = %q, want 5432", got)
	}

	m.Set("port", int64(1))
	if ctrl.Renders() != 2 {
		t.Fatalf("external change should re-render, renders = %d", ctrl.Renders())
	}
}

func TestIntegerValidValueClearsPreviousError(t *testing.T) {
	fx := newFixture(t)
	mt := portType()
	m := mt.NewModel(nil)
	ctrl := fx.mount(t, fx.field(t, mt, schema.ModeEdit, "port"), m).(*Integer)

	ctrl.Change("x")
	if !ctrl.Element().HasClass("has-error") {
		t.Fatalf("expected error state")
	}
	ctrl.Change("10")
	if ctrl.Element().HasClass("has-error") || m.ErrorAt("port") != "" {
		t.Fatalf("error kept after a valid value")
	}
}

func TestIntegerRendersBounds(t *testing.T) {
	fx := newFixture(t)
	mt := portType()
	ctrl := fx.mount(t, fx.field(t, mt, schema.ModeEdit, "port"), mt.NewModel(nil))
	input := firstTag(t, ctrl.Element(), "input")
	for key, want := range map[string]string{"type": "number", "min": "1", "max": "65535", "maxlength": "255"} {
		if got := input.AttrOr(key, ""); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
}
