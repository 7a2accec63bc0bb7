// Package form lays resolved field groups out as containers: a tabbed Dialog
// or a Fieldset of collapsible sections, plus the inline variants used for
// layout fields nested inside another container.
package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
)

const (
	paneClasses    = "col-sm-12 col-md-12 col-lg-12 col-xs-12"
	dialogClasses  = paneClasses
	inlineTabClass = "inline-tab-panel"
)

// Option customises a container.
type Option func(*settings)

type settings struct {
	tabIndex      int
	tabPanelClass string
	tag           string
	className     string
}

// WithTabIndex sets the base tab index. Tab i of the container is numbered
// tabIndex*100 + i.
func WithTabIndex(n int) Option {
	return func(s *settings) {
		s.tabIndex = n
	}
}

// withRoot sets the tag and class of the container element.
func withRoot(tag, class string) Option {
	return func(s *settings) {
		s.tag = tag
		s.className = class
	}
}

// WithTabPanelClass overrides the class of the container element.
func WithTabPanelClass(class string) Option {
	return func(s *settings) {
		if strings.TrimSpace(class) != "" {
			s.tabPanelClass = class
		}
	}
}

type tabIDs struct {
	content string
	header  string
}

// Dialog renders groups as tabs. Each render tears down the previous
// controls and creates one control per field.
type Dialog struct {
	env    *controls.Env
	model  *model.Model
	groups []resolver.Group
	ids    []tabIDs

	tabIndex      int
	tabPanelClass string

	el       *dom.Element
	headers  []*dom.Element
	panels   []*dom.Element
	controls []controls.Control
	active   int
	removed  bool
}

// NewDialog builds an unrendered dialog over m.
func NewDialog(env *controls.Env, m *model.Model, groups []resolver.Group, options ...Option) *Dialog {
	s := settings{tag: "form", className: dialogClasses, tabPanelClass: env.Classes.Tab}
	for _, opt := range options {
		if opt != nil {
			opt(&s)
		}
	}
	d := &Dialog{
		env:           env,
		model:         m,
		groups:        groups,
		tabIndex:      s.tabIndex,
		tabPanelClass: s.tabPanelClass,
		el:            dom.New(s.tag, "class", s.className),
		active:        -1,
	}
	for range groups {
		d.ids = append(d.ids, tabIDs{content: env.IDs("pgC_"), header: env.IDs("pgH_")})
	}
	return d
}

// Element returns the dialog element.
func (d *Dialog) Element() *dom.Element {
	return d.el
}

// Model returns the bound model.
func (d *Dialog) Model() *model.Model {
	return d.model
}

// Controls returns the controls created by the last render.
func (d *Dialog) Controls() []controls.Control {
	return append([]controls.Control(nil), d.controls...)
}

// TabIndex returns the number of tab i.
func (d *Dialog) TabIndex(i int) int {
	return d.tabIndex*100 + i
}

// ActiveTab returns the number of the shown tab, or -1 before the first
// render.
func (d *Dialog) ActiveTab() int {
	if d.active < 0 {
		return -1
	}
	return d.TabIndex(d.active)
}

// Render rebuilds the tabs. The previously shown tab stays active when it is
// still present; otherwise the first tab is.
func (d *Dialog) Render() error {
	if d.removed {
		return nil
	}
	keep := ""
	if d.active >= 0 && d.active < len(d.ids) {
		keep = d.ids[d.active].header
	}
	d.cleanup()

	d.el.Empty()
	d.el.SetAttr("role", "tabpanel")
	d.el.SetAttr("class", d.tabPanelClass)

	head := dom.New("ul", "class", "nav nav-tabs", "role", "tablist")
	content := dom.New("ul", "class", "tab-content "+paneClasses)
	d.el.Append(head, content)
	d.headers, d.panels = nil, nil

	for i, group := range d.groups {
		idx := d.TabIndex(i)
		ids := d.ids[i]
		panel := dom.New("div",
			"role", "tabpanel",
			"class", "tab-pane "+paneClasses+" fade collapse",
			"id", ids.content,
			"aria-labelledby", ids.header,
		)
		link := dom.New("a",
			"data-toggle", "tab",
			"data-tab-index", strconv.Itoa(idx),
			"href", "#"+ids.content,
			"id", ids.header,
			"aria-controls", ids.content,
		).SetText(group.Label)
		header := dom.New("li", "role", "presentation").Append(link)
		content.Append(panel)
		head.Append(header)
		d.headers = append(d.headers, header)
		d.panels = append(d.panels, panel)

		for _, f := range group.Fields {
			ctrl, err := d.env.Factories.New(controls.Options{
				Field: f, Model: d.model, Env: d.env, Dialog: d, TabIndex: idx,
			})
			if err != nil {
				d.cleanup()
				return fmt.Errorf("form: tab %q: %w", group.Label, err)
			}
			panel.Append(ctrl.Element())
			d.controls = append(d.controls, ctrl)
		}
	}

	d.active = -1
	if len(d.groups) == 0 {
		return nil
	}
	pos := 0
	for i, ids := range d.ids {
		if keep != "" && ids.header == keep {
			pos = i
			break
		}
	}
	d.activate(pos)
	return nil
}

func (d *Dialog) activate(pos int) {
	for i := range d.headers {
		on := i == pos
		d.headers[i].ToggleClass(on, "active")
		d.panels[i].ToggleClass(on, "in", "active")
	}
	d.active = pos
}

// ShowTab activates tab i (by position) and notifies the model with the
// shown and hidden tab numbers.
func (d *Dialog) ShowTab(i int) error {
	if i < 0 || i >= len(d.headers) {
		return fmt.Errorf("form: tab %d out of range (%d tabs)", i, len(d.headers))
	}
	if i == d.active {
		return nil
	}
	hidden := d.ActiveTab()
	d.activate(i)
	d.model.Trigger(model.TopicTabChanged, model.TabChange{Shown: d.TabIndex(i), Hidden: hidden})
	return nil
}

// ShowTabLabel activates the tab carrying label.
func (d *Dialog) ShowTabLabel(label string) error {
	for i, group := range d.groups {
		if group.Label == label {
			return d.ShowTab(i)
		}
	}
	return fmt.Errorf("form: no tab labelled %q", label)
}

func (d *Dialog) cleanup() {
	for _, ctrl := range d.controls {
		ctrl.Remove()
	}
	d.controls = nil
}

// Remove tears down every control and detaches the dialog.
func (d *Dialog) Remove() {
	if d.removed {
		return
	}
	d.removed = true
	d.cleanup()
	d.el.Remove()
}

// HTML renders the dialog markup.
func (d *Dialog) HTML() string {
	return d.el.String()
}
