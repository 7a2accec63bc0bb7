// Package eventloop provides the single-threaded scheduler controls run on.
// Rendering and model mutation only ever happen inside callbacks executed by
// a Scheduler; blocking work is moved off the loop with Go and its result is
// applied back on the loop.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Run after Stop.
var ErrStopped = errors.New("eventloop: stopped")

// Timer cancels a pending AfterFunc callback.
type Timer interface {
	Stop() bool
}

// Scheduler queues callbacks for the loop.
type Scheduler interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// Go runs work off the loop and posts the continuation it returns.
	Go(work func() func())
	// AfterFunc posts fn once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop is the production scheduler. Post and Go may be called from any
// goroutine; callbacks only run inside Run. The queue grows as needed, so
// callbacks may post any number of follow-ups without blocking the loop.
type Loop struct {
	mu       sync.Mutex
	pending  []func()
	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup
}

// New returns a loop whose queue starts with the given capacity.
func New(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 64
	}
	return &Loop{
		pending: make([]func(), 0, capacity),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// Post implements Scheduler. Posting after Stop drops fn.
func (l *Loop) Post(fn func()) {
	if fn == nil || l.stopped() {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go implements Scheduler.
func (l *Loop) Go(work func() func()) {
	if work == nil {
		return
	}
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		if cont := work(); cont != nil {
			l.Post(cont)
		}
	}()
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Run executes callbacks until ctx is done or Stop is called. Callbacks
// queued when Stop is called are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return ErrStopped
		case <-l.wake:
		}
		for fn := l.next(); fn != nil; fn = l.next() {
			fn()
			if l.stopped() {
				return ErrStopped
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn
}

func (l *Loop) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

// Stop makes Run return. Safe to call from loop callbacks.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Wait blocks until every Go worker has finished.
func (l *Loop) Wait() {
	l.inflight.Wait()
}
