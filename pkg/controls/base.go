package controls

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
)

// Base carries the behaviour shared by every control: subscriptions, the
// render cycle, and error display. Concrete controls embed it and supply a
// template name plus optional extra template data.
type Base struct {
	field    resolver.Field
	model    *model.Model
	env      *Env
	dialog   Container
	tabIndex int

	id       string
	el       *dom.Element
	template string
	extra    func(data map[string]any)

	self    Control
	ownSub  *model.Subscription
	subs    []*model.Subscription
	renders int
	removed bool
}

func newBase(opts Options, template string) (*Base, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	b := &Base{
		field:    opts.Field,
		model:    opts.Model,
		env:      opts.Env,
		dialog:   opts.Dialog,
		tabIndex: opts.TabIndex,
		template: template,
		el:       dom.New("div"),
	}
	b.id = b.env.IDs("pgC_")
	b.el.AddClass(strings.Fields(b.env.Classes.Group)...)
	return b, nil
}

// bind subscribes self to the model. Re-renders go through self so embedding
// controls with their own Render are honoured.
func (b *Base) bind(self Control) {
	b.self = self
	attr := model.TopAttr(b.field.Name)
	if attr != "" {
		b.ownSub = b.model.On(model.ChangeEvent(attr), b.onChange)
		b.subs = append(b.subs, b.model.Errors().On(model.ChangeEvent(attr), func(model.Event) {
			b.self.UpdateInvalid()
		}))
	}
	for _, dep := range b.field.Descriptor.DepAttrs() {
		if dep == attr {
			continue
		}
		b.subs = append(b.subs, b.model.On(model.ChangeEvent(dep), b.onChange))
	}
}

func (b *Base) onChange(model.Event) {
	if b.removed {
		return
	}
	if err := b.self.Render(); err != nil {
		b.env.Logger.Error("controls: re-render failed", "field", b.field.Name, "control", b.field.Control, "error", err)
	}
}

// Element returns the control's root element.
func (b *Base) Element() *dom.Element {
	return b.el
}

// Field returns the resolved field.
func (b *Base) Field() resolver.Field {
	return b.field
}

// Model returns the bound model.
func (b *Base) Model() *model.Model {
	return b.model
}

// ID returns the DOM id of the control's input.
func (b *Base) ID() string {
	return b.id
}

// Renders reports how many times the control rendered.
func (b *Base) Renders() int {
	return b.renders
}

// RawValue returns the model value at the field's path.
func (b *Base) RawValue() any {
	if b.field.Name == "" {
		return nil
	}
	return b.model.Get(b.field.Name)
}

// Render re-evaluates the field against the model and replaces the markup.
func (b *Base) Render() error {
	if b.removed {
		return nil
	}
	data := b.data()
	if b.extra != nil {
		b.extra(data)
	}
	markup, err := b.env.Templates.RenderTemplate(b.template, data)
	if err != nil {
		return fmt.Errorf("controls: render %s: %w", b.field.Name, err)
	}
	if err := b.el.SetHTML(markup); err != nil {
		return fmt.Errorf("controls: render %s: %w", b.field.Name, err)
	}
	b.finish(data["visible"].(bool))
	return nil
}

// finish applies the state every render ends with.
func (b *Base) finish(visible bool) {
	hidden := strings.Fields(b.env.Classes.Hidden)
	b.el.RemoveClass(hidden...)
	if !visible {
		b.el.AddClass(hidden...)
	}
	if attr := model.TopAttr(b.field.Name); attr != "" {
		b.el.AddClass(attr)
	}
	b.renders++
	b.self.UpdateInvalid()
}

func (b *Base) data() map[string]any {
	f := b.field
	desc := f.Descriptor
	classes := b.env.Classes

	data := map[string]any{
		"id":                b.id,
		"name":              f.Name,
		"label":             sanitizeMarkup(f.Label),
		"value":             displayValue(b.RawValue()),
		"placeholder":       desc.Placeholder,
		"helpMessage":       sanitizeMarkup(desc.HelpMessage),
		"extraClasses":      desc.ExtraClasses,
		"maxlength":         desc.MaxLength,
		"visible":           f.IsVisible(b.model),
		"disabled":          f.IsDisabled(b.model),
		"required":          f.IsRequired(b.model),
		"controlLabelClass": classes.ControlLabel,
		"controlsClass":     classes.Controls,
		"controlClass":      classes.Control,
		"helpClass":         classes.HelpMessage,
	}
	return data
}

// UpdateInvalid shows the error stored for the field, if any.
func (b *Base) UpdateInvalid() {
	b.showError(b.model.ErrorAt(b.field.Name))
}

func (b *Base) showError(msg string) {
	b.self.ClearInvalid()
	if msg == "" {
		return
	}
	b.el.AddClass(strings.Fields(b.env.Classes.Error)...)
	target := b.el
	if marker := firstClass(b.env.Classes.Controls); marker != "" {
		if found := b.el.FindByClass(marker); len(found) > 0 {
			target = found[0]
		}
	}
	note := dom.New("div")
	note.AddClass(strings.Fields(b.env.Classes.ErrorMessage)...)
	note.SetText(msg)
	target.Append(note)
}

// ClearInvalid removes the error class and message.
func (b *Base) ClearInvalid() {
	b.el.RemoveClass(strings.Fields(b.env.Classes.Error)...)
	if marker := firstClass(b.env.Classes.ErrorMessage); marker != "" {
		for _, note := range b.el.FindByClass(marker) {
			note.Remove()
		}
	}
}

// Remove releases every subscription and detaches the element.
func (b *Base) Remove() {
	if b.removed {
		return
	}
	b.removed = true
	b.ownSub.Off()
	for _, sub := range b.subs {
		sub.Off()
	}
	b.subs = nil
	b.el.Remove()
}

// Removed reports whether Remove was called.
func (b *Base) Removed() bool {
	return b.removed
}

// commit writes value without re-rendering through the control's own change
// listener.
func (b *Base) commit(value any) bool {
	if b.removed || b.field.Name == "" {
		return false
	}
	attr := model.TopAttr(b.field.Name)
	b.ownSub.Off()
	changed := b.model.Set(b.field.Name, value)
	if !b.removed {
		b.ownSub = b.model.On(model.ChangeEvent(attr), b.onChange)
	}
	return changed
}

// setError replaces the field's error message, notifying the control.
func (b *Base) setError(msg string) {
	errs := b.model.Errors()
	errs.Unset(b.field.Name)
	errs.Set(b.field.Name, msg)
}

func (b *Base) clearError() {
	b.model.Errors().Unset(b.field.Name)
}

func firstClass(list string) string {
	fields := strings.Fields(list)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// displayValue formats a raw model value for an input's value attribute.
func displayValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case fmt.Stringer:
		return value.String()
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	default:
		return fmt.Sprint(value)
	}
}
