package debounce

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	was := t.stopped
	t.stopped = true
	return !was
}

// NewFakeClock creates a FakeClock starting at an arbitrary fixed time.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every due timer in order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	deadline := c.now

	var due []*fakeTimer
	var remaining []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.at.After(deadline) {
			due = append(due, t)
		} else if !t.stopped {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}
