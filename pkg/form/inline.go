package form

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/goliatone/go-adminform/pkg/controls"
	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

// RegisterControls adds the inline container controls used by layout fields.
func RegisterControls(f *controls.Factories) {
	f.MustRegister(widgets.ControlTab, NewTabControl)
	f.MustRegister(widgets.ControlFieldset, NewFieldsetControl)
}

// NewFactories returns the built-in controls plus the inline containers.
func NewFactories() *controls.Factories {
	f := controls.NewFactories()
	RegisterControls(f)
	return f
}

type container interface {
	Element() *dom.Element
	Controls() []controls.Control
	Render() error
	Remove()
}

// inline adapts a container to the control contract. It re-renders when a
// dependency changes and hides itself when the field is not visible.
type inline struct {
	field  resolver.Field
	model  *model.Model
	inner  container
	subs   []*model.Subscription
	logger *slog.Logger
}

func newInline(opts controls.Options, inner container) *inline {
	in := &inline{field: opts.Field, model: opts.Model, inner: inner, logger: opts.Env.Logger}
	for _, dep := range opts.Field.Descriptor.DepAttrs() {
		in.subs = append(in.subs, opts.Model.On(model.ChangeEvent(dep), func(model.Event) {
			if err := in.Render(); err != nil {
				in.logger.Error("form: inline re-render failed", "control", in.field.Control, "error", err)
			}
		}))
	}
	return in
}

func (in *inline) Element() *dom.Element {
	return in.inner.Element()
}

func (in *inline) Field() resolver.Field {
	return in.field
}

// Controls returns the nested controls.
func (in *inline) Controls() []controls.Control {
	return in.inner.Controls()
}

func (in *inline) Render() error {
	if err := in.inner.Render(); err != nil {
		return err
	}
	in.Element().ToggleClass(!in.field.IsVisible(in.model), "hidden")
	return nil
}

// UpdateInvalid is a no-op; nested controls track their own errors.
func (in *inline) UpdateInvalid() {}

func (in *inline) ClearInvalid() {}

func (in *inline) Remove() {
	for _, sub := range in.subs {
		sub.Off()
	}
	in.subs = nil
	in.inner.Remove()
}

// TabControl lays a layout field's nested groups out as inline tabs.
type TabControl struct {
	*inline
	dialog *Dialog
	parent controls.Container
}

// NewTabControl builds the inline tab container for a layout field.
func NewTabControl(opts controls.Options) (controls.Control, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	base := opts.TabIndex
	if base == 0 {
		base = rand.IntN(1000)
	}
	d := NewDialog(opts.Env, opts.Model, opts.Field.Groups,
		WithTabIndex(base+1),
		withRoot("div", inlineTabClass),
		WithTabPanelClass(inlineTabClass),
	)
	tc := &TabControl{dialog: d, parent: opts.Dialog}
	tc.inline = newInline(opts, d)
	return tc, nil
}

// Dialog returns the inner tab container.
func (tc *TabControl) Dialog() *Dialog {
	return tc.dialog
}

// Parent returns the container the control was created in, if any.
func (tc *TabControl) Parent() controls.Container {
	return tc.parent
}

// ActiveTab reports the shown inner tab.
func (tc *TabControl) ActiveTab() int {
	return tc.dialog.ActiveTab()
}

// FieldsetControl lays a layout field's nested groups out as inline
// sections.
type FieldsetControl struct {
	*inline
	fieldset *Fieldset
	parent   controls.Container
	tabIndex int
}

// NewFieldsetControl builds the inline fieldset container for a layout
// field.
func NewFieldsetControl(opts controls.Options) (controls.Control, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	fs := NewFieldset(opts.Env, opts.Model, opts.Field.Groups,
		inlineSections(strings.TrimSpace("set-group "+opts.Env.Classes.Tab)),
	)
	fc := &FieldsetControl{fieldset: fs, parent: opts.Dialog, tabIndex: opts.TabIndex}
	fc.inline = newInline(opts, fs)
	return fc, nil
}

// Fieldset returns the inner section container.
func (fc *FieldsetControl) Fieldset() *Fieldset {
	return fc.fieldset
}

// Parent returns the container the control was created in, if any.
func (fc *FieldsetControl) Parent() controls.Container {
	return fc.parent
}

// TabIndex returns the tab the control lives in.
func (fc *FieldsetControl) TabIndex() int {
	return fc.tabIndex
}

func validate(opts controls.Options) error {
	if opts.Model == nil || opts.Env == nil {
		return fmt.Errorf("form: %s: model and env are required", opts.Field.Control)
	}
	return nil
}
