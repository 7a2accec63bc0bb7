package controls

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/eventloop"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/schema"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

// HighlightDuration is how long a row conflicting with a rejected duplicate
// stays highlighted.
const HighlightDuration = 3 * time.Second

// Header cell and column names of the row action columns.
const (
	EditColumn   = "pg-backform-edit"
	DeleteColumn = "pg-backform-delete"
	newRowClass  = "new"
)

// Grid edits a collection attribute as a table: one row per child model and
// one column per cell capable child field. The unique variant rejects rows
// whose unique column tuple repeats another row's.
type Grid struct {
	*Base
	unique bool

	coll      *model.Collection
	columns   []resolver.Column
	groups    []resolver.Group
	collSubs  []*model.Subscription
	uniqueSub *model.Subscription

	body    *dom.Element
	table   *dom.Element
	rows    []*dom.Element
	fresh   map[*model.Model]bool
	timers  map[*model.Model]eventloop.Timer
	editing *model.Model
	editors []Control
}

// NewSubNodeCollection builds the sub-node grid, which supports row edit
// forms.
func NewSubNodeCollection(opts Options) (Control, error) {
	g, err := newGrid(opts, false)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// NewUniqueColCollection builds the grid enforcing unique columns.
func NewUniqueColCollection(opts Options) (Control, error) {
	g, err := newGrid(opts, true)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newGrid(opts Options, unique bool) (*Grid, error) {
	b, err := newBase(opts, "grid")
	if err != nil {
		return nil, err
	}
	f := opts.Field
	if f.SubModel == nil {
		err := fmt.Errorf("%w: %s has no child model", ErrSchemaMisconfigured, f.Name)
		b.env.Logger.Error("controls: grid without model", "field", f.Name, "error", err)
		return nil, err
	}
	if unique {
		ids := f.SubModel.FieldIDs()
		for _, col := range f.Descriptor.UniqueCol {
			if !slices.Contains(ids, col) {
				err := fmt.Errorf("%w: unique column %q of %s is not a field of model %q", ErrSchemaMisconfigured, col, f.Name, f.SubModel.Name)
				b.env.Logger.Error("controls: unique column missing from child schema", "field", f.Name, "column", col, "error", err)
				return nil, err
			}
		}
	}

	g := &Grid{
		Base:   b,
		unique: unique,
		fresh:  make(map[*model.Model]bool),
		timers: make(map[*model.Model]eventloop.Timer),
	}
	g.columns, g.groups = b.env.Resolver.GridColumns(f.Info, f.SubModel, f.Mode, f.Descriptor.Columns)
	g.attach()
	g.bind(g)
	return g, nil
}

// attach binds the grid to the collection currently stored in the model,
// creating it from raw rows when needed.
func (g *Grid) attach() {
	coll := g.model.EnsureCollection(g.field.Name, g.field.SubModel.Factory())
	if coll == g.coll {
		return
	}
	g.detach()
	g.coll = coll

	g.collSubs = append(g.collSubs,
		coll.On(model.EventAdd, func(model.Event) { g.renderTable() }),
		coll.On(model.EventRemove, func(ev model.Event) { g.forget(ev.Model) }),
		coll.On(model.EventChange, func(model.Event) { g.renderTable() }),
	)
	if g.enforcesUnique() {
		g.collSubs = append(g.collSubs, coll.On(model.EventAdd, g.checkAdded))
		g.uniqueSub = coll.On(model.EventChange, g.checkChanged)
	}
}

func (g *Grid) detach() {
	for _, sub := range g.collSubs {
		sub.Off()
	}
	g.collSubs = nil
	g.uniqueSub.Off()
	g.uniqueSub = nil
	for row, timer := range g.timers {
		timer.Stop()
		delete(g.timers, row)
	}
	clear(g.fresh)
	g.editing = nil
}

func (g *Grid) enforcesUnique() bool {
	return g.unique && g.field.VersionCompatible && len(g.field.Descriptor.UniqueCol) > 0
}

// Collection returns the bound collection.
func (g *Grid) Collection() *model.Collection {
	return g.coll
}

// Columns returns the data columns in display order.
func (g *Grid) Columns() []resolver.Column {
	return append([]resolver.Column(nil), g.columns...)
}

// RowElement returns the rendered row of the child at idx.
func (g *Grid) RowElement(idx int) *dom.Element {
	if idx < 0 || idx >= len(g.rows) {
		return nil
	}
	return g.rows[idx]
}

// Editors returns the controls of the open row edit form.
func (g *Grid) Editors() []Control {
	return append([]Control(nil), g.editors...)
}

// Render implements Control.
func (g *Grid) Render() error {
	if g.removed {
		return nil
	}
	g.attach()

	f := g.field
	classes := g.env.Classes
	visible := f.IsVisible(g.model)
	bodyClass, addLabel := classes.SubNodeBody, g.env.Messages.SubNodeAdd
	if g.unique {
		bodyClass, addLabel = classes.GridBody, g.env.Messages.GridAdd
	}

	data := map[string]any{
		"id":                g.id,
		"name":              f.Name,
		"label":             sanitizeMarkup(f.Label),
		"bodyClass":         bodyClass,
		"controlLabelClass": classes.ControlLabel,
		"addClass":          classes.AddButton,
		"addLabel":          addLabel,
		"showAdd":           g.canAdd(),
	}
	markup, err := g.env.Templates.RenderTemplate(g.template, data)
	if err != nil {
		return fmt.Errorf("controls: render %s: %w", f.Name, err)
	}
	if err := g.el.SetHTML(markup); err != nil {
		return fmt.Errorf("controls: render %s: %w", f.Name, err)
	}
	g.body = nil
	if marker := firstClass(bodyClass); marker != "" {
		if found := g.el.FindByClass(marker); len(found) > 0 {
			g.body = found[0]
		}
	}
	if g.body == nil {
		g.body = g.el
	}
	g.table = nil
	g.renderTable()
	g.finish(visible)
	return nil
}

func (g *Grid) disabled() bool {
	return g.field.IsDisabled(g.model)
}

func (g *Grid) canAdd() bool {
	return g.field.Mode != schema.ModeProperties && !g.disabled() && g.field.AllowAdd(g.model)
}

func (g *Grid) canEdit() bool {
	return !g.unique && !g.disabled() && g.field.AllowEdit(g.model)
}

func (g *Grid) canDelete() bool {
	return !g.disabled() && g.field.AllowDelete(g.model)
}

func (g *Grid) renderTable() {
	if g.removed || g.body == nil {
		return
	}
	g.closeEditors()
	if g.table != nil {
		g.table.Remove()
	}

	editCol, deleteCol := g.canEdit(), g.canDelete()
	table := dom.New("table")
	table.AddClass(strings.Fields(g.env.Classes.GridTable)...)

	head := dom.New("tr")
	if editCol {
		th := dom.New("th").AddClass(EditColumn)
		if deleteCol {
			th.SetAttr("colspan", "2")
		}
		head.Append(th)
	}
	if deleteCol && !editCol {
		head.Append(dom.New("th").AddClass(DeleteColumn))
	}
	for _, col := range g.columns {
		th := dom.New("th").AddClass(col.Field.Name)
		th.AddClass(strings.Fields(col.HeaderClasses)...)
		th.SetText(col.Field.Label)
		head.Append(th)
	}
	table.Append(dom.New("thead").Append(head))

	width := len(g.columns)
	if editCol {
		width++
	}
	if deleteCol {
		width++
	}

	tbody := dom.New("tbody")
	g.rows = g.rows[:0]
	for _, row := range g.coll.Models() {
		tr := dom.New("tr")
		tr.ToggleClass(g.fresh[row], newRowClass)
		if editCol {
			tr.Append(dom.New("td").AddClass(EditColumn).Append(dom.New("span", "class", "fa fa-pencil-square-o", "title", "Edit row")))
		}
		if deleteCol {
			tr.Append(dom.New("td").AddClass(DeleteColumn).Append(dom.New("span", "class", "fa fa-trash", "title", "Delete row")))
		}
		for _, col := range g.columns {
			tr.Append(g.cell(col, row))
		}
		tbody.Append(tr)
		g.rows = append(g.rows, tr)

		if row == g.editing {
			tbody.Append(g.editorRow(row, width))
		}
	}
	table.Append(tbody)

	g.table = table
	g.body.Append(table)
}

func (g *Grid) cell(col resolver.Column, row *model.Model) *dom.Element {
	f := col.Field
	td := dom.New("td").AddClass(cellClass(f.Cell), f.Name)
	if !g.disabled() && f.IsEditable(row) {
		td.AddClass("editable")
	}
	raw := row.Get(f.Name)
	text := displayValue(raw)
	if f.Cell == widgets.CellSelect {
		for _, opt := range cellOptions(f, row) {
			if raw != nil && displayValue(opt.Value) == text {
				text = opt.Label
				break
			}
		}
	}
	td.SetText(text)
	return td
}

func cellClass(id widgets.ControlID) string {
	name := string(id)
	if strings.HasSuffix(name, "-cell") {
		return name
	}
	return name + "-cell"
}

func cellOptions(f resolver.Field, row *model.Model) []schema.Option {
	if f.Descriptor.OptionsFunc == nil {
		return f.Descriptor.Options
	}
	options, err := f.Descriptor.OptionsFunc(row)
	if err != nil {
		return nil
	}
	return options
}

func (g *Grid) editorRow(row *model.Model, width int) *dom.Element {
	panel := dom.New("div", "class", "subnode-dialog")
	for _, group := range g.groups {
		for _, f := range group.Fields {
			ctrl, err := g.env.Factories.New(Options{Field: f, Model: row, Env: g.env})
			if err != nil {
				g.env.Logger.Error("controls: row editor control", "grid", g.field.Name, "field", f.Name, "error", err)
				continue
			}
			g.editors = append(g.editors, ctrl)
			panel.Append(ctrl.Element())
		}
	}
	td := dom.New("td", "colspan", strconv.Itoa(width)).Append(panel)
	return dom.New("tr", "class", "editor").Append(td)
}

func (g *Grid) closeEditors() {
	for _, ctrl := range g.editors {
		ctrl.Remove()
	}
	g.editors = nil
}

// AddRow appends an empty row and marks it new. It refuses while adding is
// not allowed or, unless multiple empty rows are allowed, while a row with
// only empty values exists.
func (g *Grid) AddRow() bool {
	if g.removed || !g.canAdd() {
		return false
	}
	if !g.field.Descriptor.AllowMultipleEmptyRows {
		for _, row := range g.coll.Models() {
			if emptyRow(row) {
				return false
			}
		}
	}
	for row := range g.fresh {
		if _, flashing := g.timers[row]; !flashing {
			delete(g.fresh, row)
		}
	}
	child := g.coll.New(nil)
	g.fresh[child] = true
	g.coll.AddModel(child)
	return true
}

// DeleteRow removes the row at idx when deletion is allowed.
func (g *Grid) DeleteRow(idx int) bool {
	if g.removed || !g.canDelete() {
		return false
	}
	row := g.coll.At(idx)
	if row == nil {
		return false
	}
	return g.coll.Remove(row)
}

// EditRow toggles the edit form of the row at idx.
func (g *Grid) EditRow(idx int) bool {
	if g.removed || !g.canEdit() {
		return false
	}
	row := g.coll.At(idx)
	if row == nil {
		return false
	}
	if g.editing == row {
		g.editing = nil
	} else {
		g.editing = row
	}
	g.renderTable()
	return true
}

// SetCell writes raw into the named column of the row at idx, converting it
// for the column's cell type.
func (g *Grid) SetCell(idx int, column, raw string) bool {
	row := g.coll.At(idx)
	if g.removed || row == nil || g.disabled() {
		return false
	}
	i := slices.IndexFunc(g.columns, func(c resolver.Column) bool { return c.Field.Name == column })
	if i < 0 {
		return false
	}
	col := g.columns[i]
	if !col.Field.IsEditable(row) {
		return false
	}
	value, ok := parseCell(col.Field, row, raw)
	if !ok {
		return false
	}
	return row.Set(col.Field.Name, value)
}

func parseCell(f resolver.Field, row *model.Model, raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	switch f.Cell {
	case widgets.CellInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err == nil
	case widgets.CellNumber:
		n, err := strconv.ParseFloat(raw, 64)
		return n, err == nil
	case widgets.CellSelect:
		for _, opt := range cellOptions(f, row) {
			if displayValue(opt.Value) == raw {
				return opt.Value, true
			}
		}
		return nil, false
	case widgets.ControlBoolean, widgets.ControlSwitch:
		switch strings.ToLower(raw) {
		case "true", "on", "1":
			return true, true
		default:
			return false, true
		}
	default:
		return raw, true
	}
}

func emptyRow(row *model.Model) bool {
	for _, key := range row.Keys() {
		if model.Truthy(row.Get(key)) {
			return false
		}
	}
	return true
}

func (g *Grid) forget(row *model.Model) {
	if timer, ok := g.timers[row]; ok {
		timer.Stop()
		delete(g.timers, row)
	}
	delete(g.fresh, row)
	if g.editing == row {
		g.editing = nil
	}
	g.renderTable()
}

func (g *Grid) checkAdded(ev model.Event) {
	var changed []string
	for _, col := range g.field.Descriptor.UniqueCol {
		if ev.Model.Get(col) != nil {
			changed = append(changed, col)
		}
	}
	g.checkUnique(ev.Model, changed, true)
}

func (g *Grid) checkChanged(ev model.Event) {
	var changed []string
	for _, attr := range ev.Changed {
		if slices.Contains(g.field.Descriptor.UniqueCol, attr) {
			changed = append(changed, attr)
		}
	}
	g.checkUnique(ev.Model, changed, false)
}

// checkUnique rejects row when another row carries the same unique tuple:
// an added row is removed once the current dispatch completes, an edited
// row gets its first changed unique attribute reverted. The conflicting row
// is highlighted.
func (g *Grid) checkUnique(row *model.Model, changed []string, added bool) {
	if row == nil || len(changed) == 0 {
		return
	}
	g.uniqueSub.Off()
	defer func() {
		if !g.removed {
			g.uniqueSub = g.coll.On(model.EventChange, g.checkChanged)
		}
	}()

	var conflict *model.Model
	for _, other := range g.coll.Models() {
		if other != row && sameTuple(row, other, g.field.Descriptor.UniqueCol) {
			conflict = other
		}
	}
	if conflict == nil {
		return
	}

	g.env.Logger.Debug("controls: duplicate row rejected", "field", g.field.Name, "added", added)
	if added {
		coll := g.coll
		row.Dispatcher().Defer(func() { coll.Remove(row) })
	} else {
		attr := changed[0]
		row.Set(attr, row.Previous(attr))
	}
	g.highlight(conflict)
}

func sameTuple(a, b *model.Model, cols []string) bool {
	for _, col := range cols {
		left := a.Get(col)
		if left == nil || !looseEqual(left, b.Get(col)) {
			return false
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	if b == nil {
		return false
	}
	return reflect.DeepEqual(a, b) || displayValue(a) == displayValue(b)
}

func (g *Grid) highlight(row *model.Model) {
	if timer, ok := g.timers[row]; ok {
		timer.Stop()
	}
	g.fresh[row] = true
	g.markRow(row)
	g.timers[row] = g.env.Scheduler.AfterFunc(HighlightDuration, func() {
		if g.removed {
			return
		}
		delete(g.timers, row)
		delete(g.fresh, row)
		g.markRow(row)
	})
}

func (g *Grid) markRow(row *model.Model) {
	if el := g.RowElement(g.coll.IndexOf(row)); el != nil {
		el.ToggleClass(g.fresh[row], newRowClass)
	}
}

// UpdateInvalid shows the grid's error. The unique grid reads it at the
// field name; the sub-node grid at the nested path, falling back to the name
// for top-level fields.
func (g *Grid) UpdateInvalid() {
	path := g.field.Name
	if !g.unique {
		if _, nested, ok := strings.Cut(path, "."); ok && nested != "" {
			path = nested
		}
	}
	g.showError(g.model.ErrorAt(path))
}

// Remove implements Control.
func (g *Grid) Remove() {
	if g.removed {
		return
	}
	g.closeEditors()
	g.detach()
	g.Base.Remove()
}
