package eventloop

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler for tests. Nothing runs until
// RunPending or Advance is called, and time only moves through Advance.
type Manual struct {
	now    time.Duration
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManual returns an idle manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// Post implements Scheduler.
func (m *Manual) Post(fn func()) {
	if fn != nil {
		m.queue = append(m.queue, fn)
	}
}

// Go implements Scheduler. The work runs on the next RunPending, followed by
// its continuation.
func (m *Manual) Go(work func() func()) {
	if work == nil {
		return
	}
	m.Post(func() {
		if cont := work(); cont != nil {
			m.Post(cont)
		}
	})
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Pending reports queued callbacks.
func (m *Manual) Pending() int {
	return len(m.queue)
}

// Now returns the virtual time elapsed.
func (m *Manual) Now() time.Duration {
	return m.now
}

// RunPending runs queued callbacks, including ones they post, and returns how
// many ran.
func (m *Manual) RunPending() int {
	ran := 0
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
		ran++
	}
	return ran
}

// Advance moves virtual time forward, firing due timers in order.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	target := m.now + d
	for {
		due := m.due(target)
		if due == nil {
			break
		}
		m.now = due.at
		due.fired = true
		m.Post(due.fn)
		m.RunPending()
	}
	m.now = target
}

func (m *Manual) due(target time.Duration) *manualTimer {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].at == m.timers[j].at {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at < m.timers[j].at
	})
	if len(m.timers) == 0 || m.timers[0].at > target {
		return nil
	}
	return m.timers[0]
}
