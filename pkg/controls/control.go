// Package controls implements the field controls of a dialog: per-field view
// components bound to a model attribute that render markup, react to model
// and error-model changes, and release their subscriptions on removal.
package controls

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/goliatone/go-adminform/pkg/dom"
	"github.com/goliatone/go-adminform/pkg/model"
	"github.com/goliatone/go-adminform/pkg/resolver"
	"github.com/goliatone/go-adminform/pkg/widgets"
)

var (
	// ErrUnknownControl is returned when no factory is registered for a
	// resolved control id.
	ErrUnknownControl = errors.New("controls: unknown control")
	// ErrSchemaMisconfigured is returned when a field's configuration does
	// not match its child schema.
	ErrSchemaMisconfigured = errors.New("controls: schema misconfigured")
)

// Control is a mounted field control.
type Control interface {
	Element() *dom.Element
	Field() resolver.Field
	Render() error
	UpdateInvalid()
	ClearInvalid()
	Remove()
}

// Input is implemented by controls that accept user input. Change reports
// whether the value was committed to the model.
type Input interface {
	Control
	Change(raw string) bool
}

// Container is the tabbed dialog a control was created by.
type Container interface {
	ActiveTab() int
}

// Options are the construction inputs of a control.
type Options struct {
	Field resolver.Field
	Model *model.Model
	Env   *Env
	// Dialog is set for controls living in a tab of a dialog; TabIndex is
	// then the index of that tab.
	Dialog   Container
	TabIndex int
}

func (o Options) validate() error {
	if o.Model == nil {
		return fmt.Errorf("controls: %s: model is required", o.Field.Name)
	}
	if o.Env == nil {
		return fmt.Errorf("controls: %s: env is required", o.Field.Name)
	}
	return nil
}

// Factory builds a control.
type Factory func(opts Options) (Control, error)

// Factories maps control ids to factories.
type Factories struct {
	mu        sync.RWMutex
	factories map[widgets.ControlID]Factory
}

// NewFactories returns the built-in field controls. Containers register
// themselves on top.
func NewFactories() *Factories {
	f := &Factories{factories: make(map[widgets.ControlID]Factory)}
	f.MustRegister(widgets.ControlUneditableInput, NewUneditable)
	f.MustRegister(widgets.ControlInput, NewInput)
	f.MustRegister(widgets.ControlInteger, NewInteger)
	f.MustRegister(widgets.ControlTextarea, NewTextarea)
	f.MustRegister(widgets.ControlSelect, NewSelect)
	f.MustRegister(widgets.ControlReadonlyOption, NewReadonlyOption)
	f.MustRegister(widgets.ControlBoolean, NewBoolean)
	f.MustRegister(widgets.ControlSwitch, NewSwitch)
	f.MustRegister(widgets.ControlDatepicker, NewDatepicker)
	f.MustRegister(widgets.ControlSelect2, NewSelect2)
	f.MustRegister(widgets.ControlSubNodeCollection, NewSubNodeCollection)
	f.MustRegister(widgets.ControlUniqueCollection, NewUniqueColCollection)
	f.MustRegister(widgets.ControlSQLTab, NewSQLTab)
	return f
}

// Register adds or replaces the factory for id.
func (f *Factories) Register(id widgets.ControlID, factory Factory) error {
	if id == "" {
		return errors.New("controls: control id is required")
	}
	if factory == nil {
		return fmt.Errorf("controls: factory for %q is nil", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.factories[id] = factory
	return nil
}

// MustRegister panics when Register fails.
func (f *Factories) MustRegister(id widgets.ControlID, factory Factory) {
	if err := f.Register(id, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for id.
func (f *Factories) Lookup(id widgets.ControlID) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	factory, ok := f.factories[id]
	return factory, ok
}

// IDs returns the registered control ids, sorted.
func (f *Factories) IDs() []widgets.ControlID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Sorted(maps.Keys(f.factories))
}

// Clone returns an independent copy.
func (f *Factories) Clone() *Factories {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &Factories{factories: maps.Clone(f.factories)}
}

// New builds and renders the control for opts.Field.
func (f *Factories) New(opts Options) (Control, error) {
	factory, ok := f.Lookup(opts.Field.Control)
	if !ok {
		return nil, fmt.Errorf("%w: %q (field %q)", ErrUnknownControl, opts.Field.Control, opts.Field.Name)
	}
	ctrl, err := factory(opts)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Render(); err != nil {
		ctrl.Remove()
		return nil, err
	}
	return ctrl, nil
}
