// Package debounce provides a keyed coalescing scheduler for side-effecting
// writes. Rapid calls with the same key collapse into a single invocation of
// the most recently scheduled function after the delay elapses.
package debounce

import (
	"sync"
	"time"
)

// Clock abstracts timer creation so tests can drive time manually.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

type pending struct {
	timer Timer
	fn    func()
}

// Debouncer coalesces scheduled functions per key. The last function
// scheduled within the delay window is the only one that runs.
type Debouncer struct {
	mu     sync.Mutex
	clock  Clock
	queue  map[string]*pending
	closed bool
}

// New creates a Debouncer. A nil clock defaults to the real clock.
func New(clock Clock) *Debouncer {
	if clock == nil {
		clock = realClock{}
	}
	return &Debouncer{
		clock: clock,
		queue: make(map[string]*pending),
	}
}

// Schedule arranges for fn to run after delay. A prior pending function for
// the same key is replaced and its timer reset.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if p, ok := d.queue[key]; ok {
		p.timer.Stop()
	}
	p := &pending{fn: fn}
	p.timer = d.clock.AfterFunc(delay, func() { d.fire(key, p) })
	d.queue[key] = p
}

// fire runs a pending entry if it is still the current one for its key.
// A replaced entry whose timer already fired is dropped here.
func (d *Debouncer) fire(key string, p *pending) {
	d.mu.Lock()
	if d.queue[key] != p {
		d.mu.Unlock()
		return
	}
	delete(d.queue, key)
	d.mu.Unlock()

	p.fn()
}

// Flush runs the pending function for key immediately, if any.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	p, ok := d.queue[key]
	if ok {
		p.timer.Stop()
		delete(d.queue, key)
	}
	d.mu.Unlock()

	if ok {
		p.fn()
	}
}

// FlushAll runs every pending function immediately.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	var fns []func()
	for key, p := range d.queue {
		p.timer.Stop()
		fns = append(fns, p.fn)
		delete(d.queue, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Cancel drops the pending function for key without running it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.queue[key]; ok {
		p.timer.Stop()
		delete(d.queue, key)
	}
}

// Close cancels all pending work and rejects further scheduling.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for key, p := range d.queue {
		p.timer.Stop()
		delete(d.queue, key)
	}
}
