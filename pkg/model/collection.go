package model

// ChildFactory builds a child model from raw attributes. Collections attach
// their dispatcher to every child they create.
type ChildFactory func(attrs map[string]any) *Model

// Collection is an ordered set of child models of one declared type.
type Collection struct {
	emitter    Emitter
	dispatcher *Dispatcher
	factory    ChildFactory
	parent     *Model

	models   []*Model
	subs     map[*Model]*Subscription
	baseline map[*Model]struct{}
}

// NewCollection constructs an empty collection. A nil factory builds plain
// models.
func NewCollection(factory ChildFactory, d *Dispatcher) *Collection {
	if factory == nil {
		factory = func(attrs map[string]any) *Model { return New(attrs) }
	}
	if d == nil {
		d = NewDispatcher()
	}
	return &Collection{
		dispatcher: d,
		factory:    factory,
		subs:       make(map[*Model]*Subscription),
		baseline:   make(map[*Model]struct{}),
	}
}

// Parent returns the model owning this collection, if any.
func (c *Collection) Parent() *Model {
	return c.parent
}

// On subscribes to EventAdd, EventRemove, or EventChange (re-emitted from
// children).
func (c *Collection) On(name string, fn Handler) *Subscription {
	return c.emitter.On(name, fn)
}

// Listeners reports how many handlers are registered for name.
func (c *Collection) Listeners(name string) int {
	return c.emitter.Listeners(name)
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	return len(c.models)
}

// At returns the row at idx or nil.
func (c *Collection) At(idx int) *Model {
	if idx < 0 || idx >= len(c.models) {
		return nil
	}
	return c.models[idx]
}

// Models returns a copy of the rows.
func (c *Collection) Models() []*Model {
	return append([]*Model(nil), c.models...)
}

// IndexOf returns the position of m or -1.
func (c *Collection) IndexOf(m *Model) int {
	for i, candidate := range c.models {
		if candidate == m {
			return i
		}
	}
	return -1
}

// New builds a child model through the collection factory without adding it.
func (c *Collection) New(attrs map[string]any) *Model {
	child := c.factory(attrs)
	child.adopt(c.dispatcher)
	return child
}

// Add builds a child from attrs, appends it, and emits EventAdd.
func (c *Collection) Add(attrs map[string]any) *Model {
	child := c.New(attrs)
	c.AddModel(child)
	return child
}

// AddModel appends an existing child and emits EventAdd.
func (c *Collection) AddModel(child *Model) {
	if child == nil || c.IndexOf(child) >= 0 {
		return
	}
	child.adopt(c.dispatcher)
	c.attach(child)
	c.dispatcher.Dispatch(func() {
		c.emitter.Emit(Event{Name: EventAdd, Model: child, Collection: c})
	})
}

// Remove detaches child and emits EventRemove. It reports whether the child
// was present.
func (c *Collection) Remove(child *Model) bool {
	idx := c.IndexOf(child)
	if idx < 0 {
		return false
	}
	c.models = append(c.models[:idx:idx], c.models[idx+1:]...)
	if sub, ok := c.subs[child]; ok {
		sub.Off()
		delete(c.subs, child)
	}
	c.dispatcher.Dispatch(func() {
		c.emitter.Emit(Event{Name: EventRemove, Model: child, Collection: c})
	})
	return true
}

func (c *Collection) append(attrs map[string]any) {
	child := c.New(attrs)
	c.attach(child)
}

func (c *Collection) attach(child *Model) {
	c.models = append(c.models, child)
	c.subs[child] = child.On(EventChange, func(ev Event) {
		c.emitter.Emit(Event{
			Name:       EventChange,
			Model:      ev.Model,
			Collection: c,
			Changed:    ev.Changed,
		})
	})
}

// ToJSON returns the rows as plain attribute maps.
func (c *Collection) ToJSON() []any {
	out := make([]any, 0, len(c.models))
	for _, child := range c.models {
		out = append(out, child.ToJSON())
	}
	return out
}

// Commit records the current rows and their attributes as the baseline.
func (c *Collection) Commit() {
	c.baseline = make(map[*Model]struct{}, len(c.models))
	for _, child := range c.models {
		c.baseline[child] = struct{}{}
		child.Commit()
	}
}

// SessionChanged reports whether rows were added, removed, or edited since
// the baseline.
func (c *Collection) SessionChanged() bool {
	if len(c.models) != len(c.baseline) {
		return true
	}
	for _, child := range c.models {
		if _, ok := c.baseline[child]; !ok {
			return true
		}
		if child.SessionChanged() {
			return true
		}
	}
	return false
}

func (m *Model) adopt(d *Dispatcher) {
	if d == nil {
		return
	}
	m.dispatcher = d
	if m.errors != nil {
		m.errors.dispatcher = d
	}
}
