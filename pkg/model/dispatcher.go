package model

// Dispatcher tracks event dispatch depth for a tree of models and holds the
// command queue for work that must not run while listeners are iterating.
type Dispatcher struct {
	depth int
	queue []func()
}

// NewDispatcher returns an idle dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatching reports whether an event dispatch is in progress.
func (d *Dispatcher) Dispatching() bool {
	return d != nil && d.depth > 0
}

// Pending reports the number of queued commands.
func (d *Dispatcher) Pending() int {
	if d == nil {
		return 0
	}
	return len(d.queue)
}

// Dispatch runs fn as an event dispatch. When the outermost dispatch returns,
// queued commands run in FIFO order. Commands queued by other commands are
// appended to the same drain.
func (d *Dispatcher) Dispatch(fn func()) {
	if d == nil {
		fn()
		return
	}
	d.enter(fn)
	if d.depth > 0 {
		return
	}
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.enter(next)
	}
}

// Defer queues fn until the current dispatch completes. Outside a dispatch fn
// runs immediately.
func (d *Dispatcher) Defer(fn func()) {
	if fn == nil {
		return
	}
	if d == nil || d.depth == 0 {
		d.Dispatch(fn)
		return
	}
	d.queue = append(d.queue, fn)
}

func (d *Dispatcher) enter(fn func()) {
	d.depth++
	defer func() { d.depth-- }()
	fn()
}
