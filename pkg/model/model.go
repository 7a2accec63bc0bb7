package model

import (
	"sort"
	"strings"
)

// DefaultIDAttribute names the attribute that identifies persisted records.
const DefaultIDAttribute = "id"

// Option customises a Model at construction.
type Option func(*Model)

// WithDispatcher shares an existing dispatcher. Child models created by a
// collection always use the collection's dispatcher.
func WithDispatcher(d *Dispatcher) Option {
	return func(m *Model) {
		if d != nil {
			m.dispatcher = d
		}
	}
}

// WithIDAttribute overrides the attribute consulted by IsNew and ID.
func WithIDAttribute(name string) Option {
	return func(m *Model) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			m.idAttribute = trimmed
		}
	}
}

// WithDefaults seeds attributes that are absent from the initial set.
func WithDefaults(defaults map[string]any) Option {
	return func(m *Model) {
		for key, value := range defaults {
			if _, ok := m.attrs[key]; !ok {
				m.attrs[key] = deepCopy(value)
			}
		}
	}
}

// Model is a mutable attribute record with change notification. It is not
// safe for concurrent use; all access happens on the event loop.
type Model struct {
	emitter     Emitter
	dispatcher  *Dispatcher
	idAttribute string

	attrs    map[string]any
	previous map[string]any
	baseline map[string]any

	errors *Model
}

// New constructs a model from attrs. The initial attributes (after defaults)
// form the baseline SessionChanged compares against.
func New(attrs map[string]any, options ...Option) *Model {
	m := &Model{
		idAttribute: DefaultIDAttribute,
		attrs:       make(map[string]any, len(attrs)),
	}
	for key, value := range attrs {
		m.attrs[key] = deepCopy(value)
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	if m.dispatcher == nil {
		m.dispatcher = NewDispatcher()
	}
	m.Commit()
	return m
}

// SetOption customises a single Set or Unset call.
type SetOption func(*setConfig)

type setConfig struct {
	silent bool
}

// Silent suppresses change events for the mutation. Session tracking still
// observes the new value.
func Silent() SetOption {
	return func(cfg *setConfig) {
		cfg.silent = true
	}
}

// Dispatcher returns the dispatcher shared by this model tree.
func (m *Model) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// IDAttribute returns the configured id attribute.
func (m *Model) IDAttribute() string {
	return m.idAttribute
}

// On subscribes to model events: EventChange, ChangeEvent(attr), or a topic.
func (m *Model) On(name string, fn Handler) *Subscription {
	return m.emitter.On(name, fn)
}

// Listeners reports how many handlers are registered for name.
func (m *Model) Listeners(name string) int {
	return m.emitter.Listeners(name)
}

// Trigger emits a topic on the model.
func (m *Model) Trigger(name string, payload any) {
	m.dispatcher.Dispatch(func() {
		m.emitter.Emit(Event{Name: name, Model: m, Payload: payload})
	})
}

// Get returns the value at a dot path, or nil.
func (m *Model) Get(path string) any {
	value, _ := getPath(m.attrs, path)
	return value
}

// Lookup returns the value at a dot path and whether it exists.
func (m *Model) Lookup(path string) (any, bool) {
	return getPath(m.attrs, path)
}

// Has reports whether the dot path resolves to a non-nil value.
func (m *Model) Has(path string) bool {
	value, ok := getPath(m.attrs, path)
	return ok && value != nil
}

// Keys returns the sorted top-level attribute names.
func (m *Model) Keys() []string {
	keys := make([]string, 0, len(m.attrs))
	for key := range m.attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Set writes value at a dot path. Nested paths replace the containing
// top-level value so Previous reports the state before the write. It returns
// false when the value is unchanged.
func (m *Model) Set(path string, value any, opts ...SetOption) bool {
	segments := splitPath(path)
	if len(segments) == 0 {
		return false
	}
	top := segments[0]
	current := m.attrs[top]

	var next any
	if len(segments) == 1 {
		if _, exists := m.attrs[top]; exists && sameValue(current, value) {
			return false
		}
		next = value
	} else {
		if existing, ok := getPath(m.attrs, path); ok && sameValue(existing, value) {
			return false
		}
		next = setNested(current, segments[1:], value)
	}

	m.previous = m.snapshot()
	m.attrs[top] = next
	m.notify(top, current, opts)
	return true
}

// Unset removes the value at a dot path.
func (m *Model) Unset(path string, opts ...SetOption) bool {
	segments := splitPath(path)
	if len(segments) == 0 {
		return false
	}
	top := segments[0]
	current, exists := m.attrs[top]
	if !exists {
		return false
	}

	m.previous = m.snapshot()
	if len(segments) == 1 {
		delete(m.attrs, top)
	} else {
		next, removed := unsetNested(current, segments[1:])
		if !removed {
			m.previous = nil
			return false
		}
		m.attrs[top] = next
	}
	m.notify(top, current, opts)
	return true
}

func (m *Model) notify(top string, previous any, opts []SetOption) {
	cfg := setConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.silent {
		return
	}
	value := m.attrs[top]
	m.dispatcher.Dispatch(func() {
		m.emitter.Emit(Event{
			Name:     ChangeEvent(top),
			Model:    m,
			Attr:     top,
			Value:    value,
			Previous: previous,
		})
		m.emitter.Emit(Event{
			Name:    EventChange,
			Model:   m,
			Changed: []string{top},
		})
	})
}

// Previous returns the top-level value of attr before the most recent
// mutation. Without a prior mutation the current value is returned.
func (m *Model) Previous(attr string) any {
	top := TopAttr(attr)
	if m.previous == nil {
		return m.attrs[top]
	}
	return m.previous[top]
}

func (m *Model) snapshot() map[string]any {
	out := make(map[string]any, len(m.attrs))
	for key, value := range m.attrs {
		out[key] = deepCopy(value)
	}
	return out
}

// ID returns the value of the id attribute.
func (m *Model) ID() any {
	return m.attrs[m.idAttribute]
}

// IsNew reports whether the record has not been persisted yet, meaning its id
// attribute is absent or blank.
func (m *Model) IsNew() bool {
	switch id := m.attrs[m.idAttribute].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(id) == ""
	default:
		return false
	}
}

// Errors returns the attached error model, creating it on first use. Error
// messages are stored at the field's path.
func (m *Model) Errors() *Model {
	if m.errors == nil {
		m.errors = &Model{
			idAttribute: DefaultIDAttribute,
			attrs:       make(map[string]any),
			dispatcher:  m.dispatcher,
		}
	}
	return m.errors
}

// ErrorAt returns the error message stored for path, if any.
func (m *Model) ErrorAt(path string) string {
	if m.errors == nil {
		return ""
	}
	value, ok := getPath(m.errors.attrs, path)
	if !ok || value == nil {
		return ""
	}
	if msg, ok := value.(string); ok {
		return msg
	}
	return ""
}

// Attributes returns a deep copy of the raw attributes. Collections are
// returned as-is.
func (m *Model) Attributes() map[string]any {
	return m.snapshot()
}

// ToJSON returns the attributes as plain JSON-compatible values; collections
// and nested models are flattened.
func (m *Model) ToJSON() map[string]any {
	out := make(map[string]any, len(m.attrs))
	for key, value := range m.attrs {
		out[key] = plain(value)
	}
	return out
}

func plain(value any) any {
	switch v := value.(type) {
	case *Collection:
		return v.ToJSON()
	case *Model:
		return v.ToJSON()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = plain(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = plain(inner)
		}
		return out
	default:
		return v
	}
}

// Commit records the current attributes as the baseline for SessionChanged.
func (m *Model) Commit() {
	m.baseline = make(map[string]any, len(m.attrs))
	for key, value := range m.attrs {
		if coll, ok := value.(*Collection); ok {
			coll.Commit()
			continue
		}
		m.baseline[key] = deepCopy(value)
	}
}

// SessionChanged reports whether any attribute differs from the baseline.
// Collection attributes report their own session state.
func (m *Model) SessionChanged() bool {
	for key, value := range m.attrs {
		if coll, ok := value.(*Collection); ok {
			if coll.SessionChanged() {
				return true
			}
			continue
		}
		base, ok := m.baseline[key]
		if !ok {
			if value != nil {
				return true
			}
			continue
		}
		if !sameValue(base, value) {
			return true
		}
	}
	for key, base := range m.baseline {
		if _, ok := m.attrs[key]; !ok && base != nil {
			return true
		}
	}
	return false
}

// EnsureCollection returns the collection stored at attr. When the slot holds
// raw rows (or nothing) a collection is created from them with newChild and
// stored silently; those rows become the collection's baseline.
func (m *Model) EnsureCollection(attr string, newChild ChildFactory) *Collection {
	top := TopAttr(attr)
	if coll, ok := m.attrs[top].(*Collection); ok {
		return coll
	}
	coll := NewCollection(newChild, m.dispatcher)
	for _, row := range rowsOf(m.attrs[top]) {
		coll.append(row)
	}
	coll.Commit()
	coll.parent = m
	m.attrs[top] = coll
	return coll
}

func rowsOf(value any) []map[string]any {
	switch rows := value.(type) {
	case []map[string]any:
		return rows
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			if attrs, ok := row.(map[string]any); ok {
				out = append(out, attrs)
			}
		}
		return out
	default:
		return nil
	}
}
