package controls

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-adminform/pkg/schema"
)

func userMappingWithOptions(mutate func(*schema.Field)) *schema.ModelType {
	f := schema.Field{
		ID: "um_options", Type: schema.TypeUniqueColCollection, Label: "Options",
		Model: "um_option", ModelType: umOptionType(),
		UniqueCol: []string{"umoption"},
		CanAdd:    schema.Literal(true),
		CanDelete: schema.Literal(true),
	}
	if mutate != nil {
		mutate(&f)
	}
	return &schema.ModelType{Name: "user_mapping", Schema: []schema.Field{f}}
}

func mountGrid(t *testing.T, fx fixture, mt *schema.ModelType, mode schema.Mode, attrs map[string]any) *Grid {
	t.Helper()
	m := mt.NewModel(attrs)
	return fx.mount(t, fx.field(t, mt, mode, "um_options"), m).(*Grid)
}

func rowValues(g *Grid, attr string) []any {
	var out []any
	for _, row := range g.Collection().Models() {
		out = append(out, row.Get(attr))
	}
	return out
}

func twoOptions() map[string]any {
	return map[string]any{"um_options": []any{
		map[string]any{"umoption": "user", "umvalue": "joe"},
		map[string]any{"umoption": "password", "umvalue": "secret"},
	}}
}

func TestUniqueGridRemovesDuplicateAddAfterDispatch(t *testing.T) {
	fx := newFixture(t)
	g := mountGrid(t, fx, userMappingWithOptions(nil), schema.ModeEdit, twoOptions())

	coll := g.Collection()
	added := coll.Add(map[string]any{"umoption": "user", "umvalue": "other"})
	if coll.IndexOf(added) >= 0 {
		t.Fatalf("duplicate row kept")
	}
	if diff := cmp.Diff([]any{"user", "password"}, rowValues(g, "umoption")); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if got := len(g.Element().FindByTag("tbody")[0].FindByTag("tr")); got != 2 {
		t.Fatalf("rendered rows = %d, want 2", got)
	}
	if !g.RowElement(0).HasClass("new") {
		t.Fatalf("conflicting row should be highlighted")
	}

	fx.sched.Advance(HighlightDuration)
	if g.RowElement(0).HasClass("new") {
		t.Fatalf("highlight should clear after %s", HighlightDuration)
	}
}

func TestUniqueGridRevertsConflictingEdit(t *testing.T) {
	fx := newFixture(t)
	g := mountGrid(t, fx, userMappingWithOptions(nil), schema.ModeEdit, twoOptions())

	g.SetCell(1, "umoption", "user")
	if diff := cmp.Diff([]any{"user", "password"}, rowValues(g, "umoption")); diff != "" {
		t.Fatalf("edit not reverted (-want +got):\n%s", diff)
	}
	if !g.RowElement(0).HasClass("new") {
		t.Fatalf("conflicting row should be highlighted")
	}

	if !g.SetCell(1, "umoption", "sslmode") {
		t.Fatalf("non conflicting edit rejected")
	}
	if got := g.Collection().At(1).Get("umoption"); got != "sslmode" {
		t.Fatalf("umoption = %v", got)
	}
	if got := g.Collection().Len(); got != 2 {
		t.Fatalf("rows = %d", got)
	}
}

func TestUniqueGridIgnoresRowsWithoutUniqueValues(t *testing.T) {
	fx := newFixture(t)
	g := mountGrid(t, fx, userMappingWithOptions(nil), schema.ModeEdit, twoOptions())

	g.Collection().Add(map[string]any{"umvalue": "joe"})
	g.Collection().Add(map[string]any{"umvalue": "joe"})
	if got := g.Collection().Len(); got != 4 {
		t.Fatalf("rows = %d, want 4", got)
	}
}

func TestUniqueGridMisconfiguredColumn(t *testing.T) {
	fx := newFixture(t)
	mt := userMappingWithOptions(func(f *schema.Field) { f.UniqueCol = []string{"umoption", "missing"} })
	f := fx.field(t, mt, schema.ModeEdit, "um_options")

	_, err := fx.env.Factories.New(Options{Field: f, Model: mt.NewModel(nil), Env: fx.env})
	if !errors.Is(err, ErrSchemaMisconfigured) {
		t.Fatalf("expected ErrSchemaMisconfigured, got %v", err)
	}
}

func TestUniqueGridDisabledWhenIncompatible(t *testing.T) {
	fx := newFixture(t)
	mt := userMappingWithOptions(func(f *schema.Field) { f.MinVersion = 90500 })
	f := fx.field(t, mt, schema.ModeEdit, "um_options")
	f.VersionCompatible = false
	f.Disabled = schema.Literal(true)
	f.CanAdd = schema.Literal(false)

	g := fx.mount(t, f, mt.NewModel(twoOptions())).(*Grid)
	if g.AddRow() {
		t.Fatalf("incompatible grid accepted a row")
	}
	g.Collection().Add(map[string]any{"umoption": "user"})
	if got := g.Collection().Len(); got != 3 {
		t.Fatalf("uniqueness should not be enforced on an incompatible grid, rows = %d", got)
	}
}

func TestGridAddRowThrottlesEmptyRows(t *testing.T) {
	fx := newFixture(t)
	g := mountGrid(t, fx, userMappingWithOptions(nil), schema.ModeEdit, nil)

	if !g.AddRow() {
		t.Fatalf("first AddRow refused")
	}
	if !g.RowElement(0).HasClass("new") {
		t.Fatalf("added row not marked new")
	}
	if g.AddRow() {
		t.Fatalf("second empty row allowed")
	}

	g.SetCell(0, "umoption", "user")
	if !g.AddRow() {
		t.Fatalf("AddRow refused after the empty row was filled")
	}
	if g.RowElement(0).HasClass("new") || !g.RowElement(1).HasClass("new") {
		t.Fatalf("only the latest row should be marked new")
	}
}

func TestGridAllowsMultipleEmptyRows(t *testing.T) {
	fx := newFixture(t)
	mt := userMappingWithOptions(func(f *schema.Field) { f.AllowMultipleEmptyRows = true })
	g := mountGrid(t, fx, mt, schema.ModeEdit, nil)
	for i := 0; i < 3; i++ {
		if !g.AddRow() {
			t.Fatalf("AddRow %d refused", i)
		}
	}
	if got := g.Collection().Len(); got != 3 {
		t.Fatalf("rows = %d", got)
	}
}

func TestGridAddButton(t *testing.T) {
	cases := []struct {
		name    string
		mode    schema.Mode
		mutate  func(*schema.Field)
		wantAdd bool
	}{
		{name: "edit", mode: schema.ModeEdit, wantAdd: true},
		{name: "properties", mode: schema.ModeProperties},
		{name: "cannot add", mode: schema.ModeEdit, mutate: func(f *schema.Field) { f.CanAdd = schema.Literal(false) }},
		{name: "disabled", mode: schema.ModeEdit, mutate: func(f *schema.Field) { f.Disabled = schema.Literal(true) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			g := mountGrid(t, fx, userMappingWithOptions(tc.mutate), tc.mode, twoOptions())
			buttons := g.Element().FindByTag("button")
			if got := len(buttons) == 1; got != tc.wantAdd {
				t.Fatalf("add button present = %v, want %v", got, tc.wantAdd)
			}
			if tc.wantAdd && buttons[0].Text() != "ADD" {
				t.Fatalf("add label = %q", buttons[0].Text())
			}
			if got := g.AddRow(); got != tc.wantAdd {
				t.Fatalf("AddRow = %v, want %v", got, tc.wantAdd)
			}
		})
	}
}

func TestGridDeleteColumn(t *testing.T) {
	fx := newFixture(t)
	g := mountGrid(t, fx, userMappingWithOptions(nil), schema.ModeEdit, twoOptions())
	if got := len(g.Element().FindByClass(DeleteColumn)); got != 3 {
		t.Fatalf("delete cells = %d, want header plus two rows", got)
	}
	if !g.DeleteRow(0) {
		t.Fatalf("DeleteRow refused")
	}
	if diff := cmp.Diff([]any{"password"}, rowValues(g, "umoption")); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	fx = newFixture(t)
	g = mountGrid(t, fx, userMappingWithOptions(func(f *schema.Field) { f.CanDelete = schema.Predicate{} }), schema.ModeEdit, twoOptions())
	if len(g.Element().FindByClass(DeleteColumn)) != 0 || g.DeleteRow(0) {
		t.Fatalf("delete column present without canDelete")
	}
}

func TestGridErrorUsesFieldName(t *testing.T) {
	fx := newFixture(t)
	g := mountGrid(t, fx, userMappingWithOptions(nil), schema.ModeEdit, twoOptions())
	g.Model().Errors().Set("um_options", "Option names must be unique.")
	notes := g.Element().FindByClass("pgadmin-control-error-message")
	if len(notes) != 1 || notes[0].Text() != "Option names must be unique." {
		t.Fatalf("grid error not shown: %s", g.Element().String())
	}
}

func subNodeType() *schema.ModelType {
	return &schema.ModelType{Name: "table", Schema: []schema.Field{{
		ID: "columns", Type: schema.TypeCollection, Label: "Columns",
		Model: "um_option", ModelType: umOptionType(),
		CanAdd:    schema.Literal(true),
		CanEdit:   schema.Literal(true),
		CanDelete: schema.Literal(true),
		Columns:   schema.OrderedColumns("umvalue", "umoption"),
	}}}
}

func TestSubNodeGridMergesActionHeaders(t *testing.T) {
	fx := newFixture(t)
	mt := subNodeType()
	m := mt.NewModel(map[string]any{"columns": []any{map[string]any{"umoption": "id", "umvalue": "int"}}})
	g := fx.mount(t, fx.field(t, mt, schema.ModeEdit, "columns"), m).(*Grid)

	thead := g.Element().FindByTag("thead")[0]
	var headers []string
	for _, th := range thead.FindByTag("th") {
		headers = append(headers, th.AttrOr("class", ""))
	}
	if diff := cmp.Diff([]string{EditColumn, "umvalue", "umoption"}, headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
	if got := thead.FindByTag("th")[0].AttrOr("colspan", ""); got != "2" {
		t.Fatalf("edit header colspan = %q", got)
	}

	cells := g.RowElement(0).FindByTag("td")
	if len(cells) != 4 || !cells[0].HasClass(EditColumn) || !cells[1].HasClass(DeleteColumn) {
		t.Fatalf("row cells = %s", g.RowElement(0).String())
	}
	if got := cells[2].Text(); got != "int" {
		t.Fatalf("first data cell = %q", got)
	}
	if buttons := g.Element().FindByTag("button"); len(buttons) != 1 || buttons[0].Text() != "Add" {
		t.Fatalf("sub-node add button missing")
	}
}

func TestSubNodeGridEditRow(t *testing.T) {
	fx := newFixture(t)
	mt := subNodeType()
	m := mt.NewModel(map[string]any{"columns": []any{map[string]any{"umoption": "id", "umvalue": "int"}}})
	g := fx.mount(t, fx.field(t, mt, schema.ModeEdit, "columns"), m).(*Grid)

	if !g.EditRow(0) {
		t.Fatalf("EditRow refused")
	}
	editors := g.Editors()
	if len(editors) != 2 {
		t.Fatalf("editors = %d, want 2", len(editors))
	}
	if len(g.Element().FindByClass("subnode-dialog")) != 1 {
		t.Fatalf("edit form not rendered")
	}

	input, ok := editors[0].(Input)
	if !ok {
		t.Fatalf("editor %T does not accept input", editors[0])
	}
	input.Change("bigint")
	row := g.Collection().At(0)
	if got := row.Get(editors[0].Field().Name); got != "bigint" {
		t.Fatalf("row value = %v", got)
	}
	if len(g.Editors()) != 2 {
		t.Fatalf("edit form closed after a change")
	}
	if !m.SessionChanged() {
		t.Fatalf("row edit should mark the session changed")
	}

	g.EditRow(0)
	if len(g.Editors()) != 0 || len(g.Element().FindByClass("subnode-dialog")) != 0 {
		t.Fatalf("edit form still open")
	}
}
