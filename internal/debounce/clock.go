// Package debounce coalesces bursts of calls into a single delayed call.
//
// A Debouncer owns exactly one pending-timer slot. Every Trigger cancels the
// previous timer and schedules a new one carrying the latest value, so the
// callback fires once per burst after a quiet period.
//
// Time is injected through the Clock interface. Production code uses
// RealClock; tests use ManualClock and advance virtual time explicitly.
package debounce

import (
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Clock provides the current time and delayed execution.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is a Clock whose time only moves when Advance is called.
// Timers fire synchronously on the goroutine calling Advance, in deadline
// order. It is safe for concurrent use.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
	nextID uint64
}

type manualTimer struct {
	clock    *ManualClock
	id       uint64
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// NewManualClock creates a manual clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current virtual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once virtual time reaches Now()+d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	t := &manualTimer{
		clock:    c,
		id:       c.nextID,
		deadline: c.now.Add(d),
		fn:       f,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves virtual time forward by d and fires every timer whose
// deadline has been reached. Timers scheduled by fired callbacks also run
// if they fall within the advanced window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		t := c.nextDueLocked(target)
		if t == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = t.deadline
		t.fired = true
		c.removeLocked(t)
		c.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// nextDueLocked returns the earliest timer due by target (must hold lock).
func (c *ManualClock) nextDueLocked(target time.Time) *manualTimer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].id < c.timers[j].id
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	if c.timers[0].deadline.After(target) {
		return nil
	}
	return c.timers[0]
}

// removeLocked drops t from the timer list (must hold lock).
func (c *ManualClock) removeLocked(t *manualTimer) {
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.clock.removeLocked(t)
	return true
}
