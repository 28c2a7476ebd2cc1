package debounce

import (
	"sync"
	"time"
)

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the clock used to schedule callbacks.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// Debouncer delays a callback until calls have stopped for a quiet period.
//
// At most one call is pending at any time. Trigger replaces the pending
// value and restarts the delay. The callback receives the value passed to
// the last Trigger of the burst.
//
// Thread-safety: All methods are safe for concurrent use. The callback runs
// without the debouncer lock held and never twice for the same Trigger.
type Debouncer[T any] struct {
	mu       sync.Mutex
	clock    Clock
	delay    time.Duration
	timer    Timer
	pending  bool
	value    T
	seq      uint64 // sequence number to detect stale callbacks
	callback func(T)
}

// New creates a debouncer that calls callback after delay of quiet.
func New[T any](delay time.Duration, callback func(T), opts ...Option) *Debouncer[T] {
	o := options{clock: RealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Debouncer[T]{
		clock:    o.clock,
		delay:    delay,
		callback: callback,
	}
}

// Trigger schedules the callback with v, canceling any pending call.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.value = v
	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// Only execute if this is still the current scheduled callback
		if !d.pending || d.seq != currentSeq || d.callback == nil {
			d.mu.Unlock()
			return
		}
		v := d.takeLocked()
		d.mu.Unlock()
		d.callback(v)
	})
}

// Flush runs the pending callback immediately.
// It returns false if nothing was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	d.stopLocked()

	if !d.pending || d.callback == nil {
		d.mu.Unlock()
		return false
	}
	v := d.takeLocked()
	d.mu.Unlock()

	d.callback(v)
	return true
}

// Cancel drops the pending call. It returns false if nothing was pending.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	was := d.pending
	d.takeLocked()
	return was
}

// Pending returns true if a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Delay returns the quiet period.
func (d *Debouncer[T]) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delay
}

// SetDelay changes the quiet period for subsequent triggers. A call
// already scheduled keeps its original deadline.
func (d *Debouncer[T]) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// stopLocked stops the timer and invalidates any running callback (must hold lock).
func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// takeLocked clears the pending slot and returns its value (must hold lock).
func (d *Debouncer[T]) takeLocked() T {
	v := d.value
	var zero T
	d.value = zero
	d.pending = false
	d.timer = nil
	return v
}
