package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/eventloop"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/msql"
	"github.com/goliatone/go-adminform/pkg/node"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/schema"
)

type countingFetcher struct {
	mu   sync.Mutex
	urls []string
}

func (f *countingFetcher) Fetch(_ context.Context, req msql.Request) (msql.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, req.URL)
	return msql.Response{Data: "ALTER USER MAPPING FOR bob SERVER s1;"}, nil
}

type fixture struct {
	env     *controls.Env
	sched   *eventloop.Manual
	fetcher *countingFetcher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fx := fixture{sched: eventloop.NewManual(), fetcher: &countingFetcher{}}
	env, err := controls.NewEnv(
		controls.WithScheduler(fx.sched),
		controls.WithIDs(controls.SequentialIDs()),
		controls.WithFactories(NewFactories()),
		controls.WithFetcher(fx.fetcher),
	)
	if err != nil {
		t.Fatalf("NewEnv: %v", err)
	}
	fx.env = env
	return fx
}

func userMappingType() *schema.ModelType {
	return &schema.ModelType{
		Name:        "user_mapping",
		IDAttribute: "oid",
		Schema: []schema.Field{
			{ID: "name", Type: schema.TypeText, Label: "User"},
			{ID: "comment", Type: schema.TypeMultiline, Label: "Comment"},
			{ID: "umoptions", Type: schema.TypeText, Label: "Options", Group: "Options"},
		},
	}
}

func (fx fixture) groups(t *testing.T, mt *schema.ModelType, mode schema.Mode) []resolver.Group {
	t.Helper()
	n := node.NewStatic(schema.NodeSpec{
		Type: "user_mapping", HasSQL: true,
		Ancestors: []string{"server", "foreign_server"},
	})
	info := node.ContextInfo{
		Server:    &node.ServerInfo{ID: "1", Type: "pg", Version: 150000},
		Ancestors: []node.Ancestor{{Type: "foreign_server", ID: "9"}},
	}
	groups := fx.env.Resolver.Resolve(resolver.Request{
		Info: info, Type: mt, Mode: mode, Node: n, TreeData: node.TreeData{ID: "42"},
	})
	if len(groups) == 0 {
		t.Fatalf("no groups resolved")
	}
	return groups
}

func (fx fixture) dialog(t *testing.T, m *model.Model, groups []resolver.Group) *Dialog {
	t.Helper()
	d := NewDialog(fx.env, m, groups)
	if err := d.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	t.Cleanup(d.Remove)
	return d
}

func activeHeaders(d *Dialog) []string {
	var out []string
	for _, li := range d.Element().FindByTag("li") {
		if li.HasClass("active") {
			out = append(out, li.Text())
		}
	}
	return out
}

func names(ctrls []controls.Control) []string {
	out := make([]string, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, c.Field().Name)
	}
	return out
}

func TestDialogRendersTabsInSchemaOrder(t *testing.T) {
	fx := newFixture(t)
	m := model.New(map[string]any{"oid": 42, "name": "joe"}, model.WithIDAttribute("oid"))
	d := fx.dialog(t, m, fx.groups(t, userMappingType(), schema.ModeEdit))

	if diff := cmp.Diff([]string{"name", "comment", "umoptions", "sql"}, names(d.Controls())); diff != "" {
		t.Fatalf("controls (-want +got):\n%s", diff)
	}

	root := d.Element()
	if got := root.AttrOr("role", ""); got != "tabpanel" {
		t.Fatalf("role = %q", got)
	}
	if !root.HasClass("backform-tab") {
		t.Fatalf("root classes = %v", root.Classes())
	}

	links := root.FindByAttr("data-toggle", "tab")
	var labels, indexes []string
	for _, a := range links {
		labels = append(labels, a.Text())
		indexes = append(indexes, a.AttrOr("data-tab-index", ""))
		target := strings.TrimPrefix(a.AttrOr("href", ""), "#")
		panel := root.ByID(target)
		if panel == nil {
			t.Fatalf("no panel for %s", target)
		}
		if panel.AttrOr("aria-labelledby", "") != a.AttrOr("id", "") {
			t.Fatalf("panel %s not labelled by its header", target)
		}
	}
	if diff := cmp.Diff([]string{"General", "Options", "SQL"}, labels); diff != "" {
		t.Fatalf("labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0", "1", "2"}, indexes); diff != "" {
		t.Fatalf("tab indexes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"General"}, activeHeaders(d)); diff != "" {
		t.Fatalf("active (-want +got):\n%s", diff)
	}
	if d.ActiveTab() != 0 {
		t.Fatalf("ActiveTab = %d", d.ActiveTab())
	}
}

func TestDialogTabIndexOffset(t *testing.T) {
	fx := newFixture(t)
	m := model.New(nil)
	d := NewDialog(fx.env, m, fx.groups(t, userMappingType(), schema.ModeCreate), WithTabIndex(3))
	if err := d.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer d.Remove()
	if d.ActiveTab() != 300 {
		t.Fatalf("ActiveTab = %d", d.ActiveTab())
	}
	var indexes []string
	for _, a := range d.Element().FindByAttr("data-toggle", "tab") {
		indexes = append(indexes, a.AttrOr("data-tab-index", ""))
	}
	if diff := cmp.Diff([]string{"300", "301", "302"}, indexes); diff != "" {
		t.Fatalf("tab indexes (-want +got):\n%s", diff)
	}
}

func TestDialogKeepsActiveTabAcrossRender(t *testing.T) {
	fx := newFixture(t)
	m := model.New(map[string]any{"oid": 42}, model.WithIDAttribute("oid"))
	d := fx.dialog(t, m, fx.groups(t, userMappingType(), schema.ModeEdit))

	if err := d.ShowTabLabel("Options"); err != nil {
		t.Fatalf("ShowTabLabel: %v", err)
	}
	before := d.Controls()
	if err := d.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if d.ActiveTab() != 1 {
		t.Fatalf("ActiveTab = %d", d.ActiveTab())
	}
	if diff := cmp.Diff([]string{"Options"}, activeHeaders(d)); diff != "" {
		t.Fatalf("active (-want +got):\n%s", diff)
	}
	panel := d.Element().FindByClass("tab-pane")[1]
	if !panel.HasClass("in", "active") {
		t.Fatalf("panel classes = %v", panel.Classes())
	}
	for _, c := range before {
		if c.Element().Parent() != nil {
			t.Fatalf("stale control %s still attached", c.Field().Name)
		}
	}
}

func TestShowTabNotifiesModel(t *testing.T) {
	fx := newFixture(t)
	m := model.New(map[string]any{"oid": 42}, model.WithIDAttribute("oid"))
	d := fx.dialog(t, m, fx.groups(t, userMappingType(), schema.ModeEdit))

	var got []model.TabChange
	m.On(model.TopicTabChanged, func(ev model.Event) {
		got = append(got, ev.Payload.(model.TabChange))
	})

	if err := d.ShowTab(1); err != nil {
		t.Fatalf("ShowTab: %v", err)
	}
	if err := d.ShowTab(1); err != nil {
		t.Fatalf("ShowTab again: %v", err)
	}
	if err := d.ShowTab(7); err == nil {
		t.Fatalf("expected out of range error")
	}
	if diff := cmp.Diff([]model.TabChange{{Shown: 1, Hidden: 0}}, got); diff != "" {
		t.Fatalf("payloads (-want +got):\n%s", diff)
	}
}

func TestShowingSQLTabFetchesPreview(t *testing.T) {
	fx := newFixture(t)
	m := model.New(map[string]any{"oid": 42, "name": "joe"}, model.WithIDAttribute("oid"))
	d := fx.dialog(t, m, fx.groups(t, userMappingType(), schema.ModeEdit))

	m.Set("name", "bob")
	if err := d.ShowTabLabel("Options"); err != nil {
		t.Fatalf("ShowTabLabel: %v", err)
	}
	fx.sched.RunPending()
	if len(fx.fetcher.urls) != 0 {
		t.Fatalf("fetched for a non-SQL tab: %v", fx.fetcher.urls)
	}

	if err := d.ShowTabLabel(resolver.SQLGroup); err != nil {
		t.Fatalf("ShowTabLabel: %v", err)
	}
	fx.sched.RunPending()
	if diff := cmp.Diff([]string{"/browser/user_mapping/msql/1/9/42"}, fx.fetcher.urls); diff != "" {
		t.Fatalf("urls (-want +got):\n%s", diff)
	}
	sqlTab := d.Controls()[3].(*controls.SQLTab)
	if sqlTab.SQL() != "ALTER USER MAPPING FOR bob SERVER s1;" {
		t.Fatalf("SQL = %q", sqlTab.SQL())
	}
}

func TestDialogRemoveReleasesListeners(t *testing.T) {
	fx := newFixture(t)
	m := model.New(map[string]any{"oid": 42}, model.WithIDAttribute("oid"))
	d := NewDialog(fx.env, m, fx.groups(t, userMappingType(), schema.ModeEdit))
	if err := d.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if m.Listeners(model.ChangeEvent("name")) == 0 || m.Listeners(model.TopicTabChanged) == 0 {
		t.Fatalf("controls did not subscribe")
	}

	d.Remove()
	d.Remove()
	if n := m.Listeners(model.ChangeEvent("name")); n != 0 {
		t.Fatalf("name listeners = %d", n)
	}
	if n := m.Listeners(model.TopicTabChanged); n != 0 {
		t.Fatalf("tab listeners = %d", n)
	}
	if err := d.Render(); err != nil {
		t.Fatalf("Render after Remove: %v", err)
	}
	if len(d.Controls()) != 0 {
		t.Fatalf("render after Remove created controls")
	}
}

func TestDialogUnknownControl(t *testing.T) {
	fx := newFixture(t)
	mt := &schema.ModelType{Name: "x", Schema: []schema.Field{
		{ID: "name", Type: schema.TypeText, Label: "Name"},
		{ID: "odd", Type: schema.TypeText, Label: "Odd", Control: "no-such-control"},
	}}
	m := model.New(nil)
	groups := fx.env.Resolver.Resolve(resolver.Request{Type: mt, Mode: schema.ModeCreate})
	d := NewDialog(fx.env, m, groups)
	err := d.Render()
	if !errors.Is(err, controls.ErrUnknownControl) {
		t.Fatalf("err = %v", err)
	}
	if len(d.Controls()) != 0 || m.Listeners(model.ChangeEvent("name")) != 0 {
		t.Fatalf("failed render left controls behind")
	}
}

func TestFieldsetRendersSections(t *testing.T) {
	fx := newFixture(t)
	m := model.New(nil)
	groups := fx.env.Resolver.Resolve(resolver.Request{Type: userMappingType(), Mode: schema.ModeCreate})
	fs := NewFieldset(fx.env, m, groups)
	if err := fs.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer fs.Remove()

	sections := fs.Element().FindByTag("fieldset")
	if len(sections) != 2 {
		t.Fatalf("sections = %d", len(sections))
	}
	legend := firstTag(t, sections[0], "legend")
	if !legend.HasClass("badge") || legend.AttrOr("data-toggle", "") != "collapse" {
		t.Fatalf("legend = %s", legend.String())
	}
	if len(legend.FindByClass("caret")) != 1 || legend.Text() != "General" {
		t.Fatalf("legend = %s", legend.String())
	}
	target := strings.TrimPrefix(legend.AttrOr("data-target", ""), "#")
	content := fs.Element().ByID(target)
	if content == nil || !content.HasClass("fieldset-content", "collapse", "in") {
		t.Fatalf("content = %v", content)
	}
	if diff := cmp.Diff([]string{"name", "comment", "umoptions"}, names(fs.Controls())); diff != "" {
		t.Fatalf("controls (-want +got):\n%s", diff)
	}
}

func layoutType() *schema.ModelType {
	return &schema.ModelType{
		Name: "layout",
		Schema: []schema.Field{
			{ID: "name", Type: schema.TypeText, Label: "Name"},
			{ID: "advanced", Type: schema.TypeUILayout, Label: "Advanced", Schema: []schema.Field{
				{ID: "owner", Type: schema.TypeText, Label: "Owner", Group: "Security"},
				{ID: "timeout", Type: schema.TypeInt, Label: "Timeout", Group: "Limits"},
			}},
			{ID: "extra", Type: schema.TypeUILayout, Label: "Extra", Control: "fieldset",
				Deps: []string{"name"},
				Visible: schema.Computed(func(m *model.Model) bool {
					return m.Get("name") != nil
				}),
				Schema: []schema.Field{
					{ID: "note", Type: schema.TypeText, Label: "Note"},
				}},
		},
	}
}

func TestInlineContainersNestControls(t *testing.T) {
	fx := newFixture(t)
	m := model.New(nil)
	groups := fx.env.Resolver.Resolve(resolver.Request{Type: layoutType(), Mode: schema.ModeCreate})
	d := fx.dialog(t, m, groups)

	ctrls := d.Controls()
	if len(ctrls) != 3 {
		t.Fatalf("controls = %d", len(ctrls))
	}

	tabs, ok := ctrls[1].(*TabControl)
	if !ok {
		t.Fatalf("advanced control = %T", ctrls[1])
	}
	if !tabs.Element().HasClass("inline-tab-panel") || tabs.Element().Tag() != "div" {
		t.Fatalf("inline tabs = %s", tabs.Element().String())
	}
	if diff := cmp.Diff([]string{"owner", "timeout"}, names(tabs.Controls())); diff != "" {
		t.Fatalf("nested (-want +got):\n%s", diff)
	}
	if tabs.Parent() != d {
		t.Fatalf("inline tabs not parented to the dialog")
	}
	if tabs.ActiveTab() < 100 {
		t.Fatalf("inline tab index = %d", tabs.ActiveTab())
	}

	sets, ok := ctrls[2].(*FieldsetControl)
	if !ok {
		t.Fatalf("extra control = %T", ctrls[2])
	}
	section := firstTag(t, sets.Element(), "fieldset")
	if !section.HasClass("inline-fieldset") {
		t.Fatalf("section classes = %v", section.Classes())
	}
	legend := firstTag(t, section, "legend")
	if _, ok := legend.Attr("class"); ok || len(legend.FindByClass("caret")) != 0 {
		t.Fatalf("inline legend = %s", legend.String())
	}
	if !sets.Element().HasClass("hidden") {
		t.Fatalf("fieldset should start hidden")
	}

	m.Set("name", "pg")
	if sets.Element().HasClass("hidden") {
		t.Fatalf("fieldset should show once name is set")
	}
	if diff := cmp.Diff([]string{"note"}, names(sets.Controls())); diff != "" {
		t.Fatalf("nested (-want +got):\n%s", diff)
	}

	d.Remove()
	if n := m.Listeners(model.ChangeEvent("owner")); n != 0 {
		t.Fatalf("nested listeners = %d", n)
	}
	if n := m.Listeners(model.ChangeEvent("name")); n != 0 {
		t.Fatalf("dependency listeners = %d", n)
	}
}

func firstTag(t *testing.T, el *dom.Element, tag string) *dom.Element {
	t.Helper()
	found := el.FindByTag(tag)
	if len(found) == 0 {
		t.Fatalf("no <%s> in %s", tag, el.String())
	}
	return found[0]
}
