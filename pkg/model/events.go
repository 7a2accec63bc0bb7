package model

import "strings"

// Event names shared by models, collections, and the controls observing them.
const (
	EventChange = "change"
	EventAdd    = "add"
	EventRemove = "remove"
)

// Notification topics triggered on a model by the view layer.
const (
	TopicTabChanged     = "view:tab:changed"
	TopicMSQLFetching   = "view:msql:fetching"
	TopicMSQLError      = "view:msql:error"
	TopicMSQLFetched    = "view:msql:fetched"
	TopicTransformError = "view:transform:error"
)

// ChangeEvent returns the per-attribute change event name for attr. Only the
// top-level segment of a dot path is used.
func ChangeEvent(attr string) string {
	return EventChange + ":" + TopAttr(attr)
}

// TopAttr returns the first segment of a dot-separated attribute path.
func TopAttr(path string) string {
	path = strings.TrimSpace(path)
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		return path[:idx]
	}
	return path
}

// Event is delivered to handlers registered with On.
type Event struct {
	Name string

	// Model is the model that changed, was added, or was removed. For topics it
	// is the model the topic was triggered on.
	Model *Model

	// Collection is set for add/remove events and for child change events
	// re-emitted by a collection.
	Collection *Collection

	Attr     string
	Value    any
	Previous any

	// Changed lists the top-level attributes touched by a "change" event.
	Changed []string

	// Payload carries topic specific data (TabChange, MSQLNotice, ...).
	Payload any
}

// Handler consumes events.
type Handler func(Event)

// TabChange is the payload of TopicTabChanged. Hidden is -1 when no tab was
// active before.
type TabChange struct {
	Shown  int
	Hidden int
}

// MSQLNotice is the payload of the msql topics.
type MSQLNotice struct {
	Method string
	Node   string
	URL    string
	Err    error
}

// TransformError is the payload of TopicTransformError.
type TransformError struct {
	Field string
	Err   error
}

// Subscription identifies a registered handler. Off is idempotent.
type Subscription struct {
	emitter *Emitter
	name    string
	id      uint64
}

// Off removes the handler. Handlers removed during a dispatch are not invoked
// for the remainder of that dispatch.
func (s *Subscription) Off() {
	if s == nil || s.emitter == nil {
		return
	}
	s.emitter.off(s.name, s.id)
	s.emitter = nil
}

type listener struct {
	id uint64
	fn Handler
}

// Emitter is a synchronous, single-threaded event emitter.
type Emitter struct {
	next     uint64
	handlers map[string][]listener
}

// On registers fn for the named event.
func (e *Emitter) On(name string, fn Handler) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	if e.handlers == nil {
		e.handlers = make(map[string][]listener)
	}
	e.next++
	e.handlers[name] = append(e.handlers[name], listener{id: e.next, fn: fn})
	return &Subscription{emitter: e, name: name, id: e.next}
}

// Listeners reports how many handlers are registered for name.
func (e *Emitter) Listeners(name string) int {
	return len(e.handlers[name])
}

// Emit invokes every handler registered for ev.Name in registration order.
func (e *Emitter) Emit(ev Event) {
	current := e.handlers[ev.Name]
	if len(current) == 0 {
		return
	}
	snapshot := append([]listener(nil), current...)
	for _, l := range snapshot {
		if !e.active(ev.Name, l.id) {
			continue
		}
		l.fn(ev)
	}
}

func (e *Emitter) active(name string, id uint64) bool {
	for _, l := range e.handlers[name] {
		if l.id == id {
			return true
		}
	}
	return false
}

func (e *Emitter) off(name string, id uint64) {
	list := e.handlers[name]
	for i, l := range list {
		if l.id != id {
			continue
		}
		next := make([]listener, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(e.handlers, name)
		} else {
			e.handlers[name] = next
		}
		return
	}
}
