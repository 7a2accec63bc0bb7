package form

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
)

// FieldsetOption customises a Fieldset.
type FieldsetOption func(*Fieldset)

// WithSectionClasses overrides the fieldset, legend and content classes.
// Empty values keep the defaults.
func WithSectionClasses(fieldset, legend, content string) FieldsetOption {
	return func(f *Fieldset) {
		if fieldset != "" {
			f.fieldsetClass = fieldset
		}
		if legend != "" {
			f.legendClass = legend
		}
		if content != "" {
			f.contentClass = content
		}
	}
}

// WithCollapse toggles collapsible sections.
func WithCollapse(on bool) FieldsetOption {
	return func(f *Fieldset) {
		f.collapse = on
	}
}

// inlineSections drops the legend badge and collapse behaviour and roots the
// sections in a div carrying class.
func inlineSections(class string) FieldsetOption {
	return func(f *Fieldset) {
		f.tag = "div"
		f.rootClass = class
		f.fieldsetClass = "inline-fieldset"
		f.legendClass = ""
		f.contentClass = ""
		f.collapse = false
	}
}

// Fieldset renders each group as a collapsible section.
type Fieldset struct {
	env    *controls.Env
	model  *model.Model
	groups []resolver.Group
	ids    []string

	tag           string
	rootClass     string
	fieldsetClass string
	legendClass   string
	contentClass  string
	collapse      bool

	el       *dom.Element
	controls []controls.Control
	removed  bool
}

// NewFieldset builds an unrendered fieldset over m.
func NewFieldset(env *controls.Env, m *model.Model, groups []resolver.Group, options ...FieldsetOption) *Fieldset {
	f := &Fieldset{
		env:           env,
		model:         m,
		groups:        groups,
		tag:           "form",
		rootClass:     env.Classes.SetGroup,
		fieldsetClass: env.Classes.SetGroup,
		legendClass:   "badge",
		contentClass:  env.Classes.SetGroupContent,
		collapse:      true,
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	f.el = dom.New(f.tag, "class", f.rootClass)
	for range groups {
		f.ids = append(f.ids, env.IDs("pgC_"))
	}
	return f
}

// Element returns the fieldset element.
func (f *Fieldset) Element() *dom.Element {
	return f.el
}

// Controls returns the controls created by the last render.
func (f *Fieldset) Controls() []controls.Control {
	return append([]controls.Control(nil), f.controls...)
}

// Render rebuilds every section.
func (f *Fieldset) Render() error {
	if f.removed {
		return nil
	}
	f.cleanup()
	f.el.Empty()

	for i, group := range f.groups {
		id := f.ids[i]
		legend := dom.New("legend")
		if f.legendClass != "" {
			legend.SetAttr("class", f.legendClass)
		}
		if f.collapse {
			legend.SetAttr("data-toggle", "collapse")
		}
		legend.SetAttr("data-target", "#"+id)
		if f.collapse {
			legend.Append(dom.New("span", "class", "caret"))
		}
		legend.AppendText(group.Label)

		content := dom.New("div", "id", id)
		classes := strings.TrimSpace(f.contentClass)
		if f.collapse {
			classes = strings.TrimSpace(classes + " collapse in")
		}
		if classes != "" {
			content.SetAttr("class", classes)
		}

		section := dom.New("fieldset", "class", f.fieldsetClass).Append(legend, content)
		f.el.Append(section)

		for _, field := range group.Fields {
			ctrl, err := f.env.Factories.New(controls.Options{Field: field, Model: f.model, Env: f.env})
			if err != nil {
				f.cleanup()
				return fmt.Errorf("form: section %q: %w", group.Label, err)
			}
			content.Append(ctrl.Element())
			f.controls = append(f.controls, ctrl)
		}
	}
	return nil
}

func (f *Fieldset) cleanup() {
	for _, ctrl := range f.controls {
		ctrl.Remove()
	}
	f.controls = nil
}

// Remove tears down every control and detaches the fieldset.
func (f *Fieldset) Remove() {
	if f.removed {
		return
	}
	f.removed = true
	f.cleanup()
	f.el.Remove()
}

// HTML renders the fieldset markup.
func (f *Fieldset) HTML() string {
	return f.el.String()
}
