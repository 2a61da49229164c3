// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	pending []*waiter
}

// waiter is a pending After channel or ticker.
type waiter struct {
	deadline time.Time
	// period is zero for one-shot waiters.
	period  time.Duration
	channel chan time.Time
	stopped bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that fires once the clock has been advanced
// by d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.add(&waiter{deadline: c.now.Add(d), channel: channel})
	return channel
}

// NewTicker returns a ticker that fires each time the clock passes a
// multiple of d from now.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker period")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &waiter{deadline: c.now.Add(d), period: d, channel: make(chan time.Time, 1)}
	c.add(w)
	return &Ticker{C: w.channel, stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		w.stopped = true
		c.prune()
	}}
}

// add registers w. Called with mu held.
func (c *FakeClock) add(w *waiter) {
	c.pending = append(c.pending, w)
	c.changed.Broadcast()
}

// prune drops stopped waiters. Called with mu held.
func (c *FakeClock) prune() {
	kept := c.pending[:0]
	for _, w := range c.pending {
		if !w.stopped {
			kept = append(kept, w)
		}
	}
	c.pending = kept
}

// Advance moves the clock forward by d. Waiters fire one at a time in
// deadline order, with Now reading each waiter's deadline as it fires,
// so a ticker spanning several periods fires once per period. Sends
// never block: a tick the reader has not consumed yet swallows the
// next one.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.now.Add(d)
	for {
		next := c.earliest()
		if next == nil || next.deadline.After(target) {
			break
		}
		c.now = next.deadline
		select {
		case next.channel <- c.now:
		default:
		}
		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			next.stopped = true
			c.prune()
		}
	}
	c.now = target
}

// earliest returns the waiter due first, or nil. Called with mu held.
func (c *FakeClock) earliest() *waiter {
	var first *waiter
	for _, w := range c.pending {
		if first == nil || w.deadline.Before(first.deadline) {
			first = w
		}
	}
	return first
}

// WaitForTimers blocks until at least n waiters are pending. Tests call
// it before Advance so a goroutine that is about to create a ticker is
// not raced.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of waiters that have not fired or
// been stopped.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
