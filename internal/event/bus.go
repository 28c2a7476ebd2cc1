package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler processes a delivered event.
type Handler func(ctx context.Context, e Event)

// Subscription is a handle to a registered handler.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() uint64

	// Pattern returns the subscribed topic pattern.
	Pattern() Topic

	// Cancel removes the subscription. It is safe to call more than once.
	Cancel()
}

// Stats contains bus counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	Panics        uint64
	Subscriptions int
}

// Bus is a synchronous topic-based publish/subscribe bus.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool

	logger *zap.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

type subscription struct {
	bus     *Bus
	id      uint64
	pattern Topic
	handler Handler
	once    sync.Once
	onClose func()
}

func (s *subscription) ID() uint64     { return s.id }
func (s *subscription) Pattern() Topic { return s.pattern }

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.bus.remove(s.id)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subs:   make(map[uint64]*subscription),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler) (Subscription, error) {
	return b.subscribe(pattern, handler, nil)
}

func (b *Bus) subscribe(pattern Topic, handler Handler, onClose func()) (*subscription, error) {
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	b.nextID++
	sub := &subscription{
		bus:     b,
		id:      b.nextID,
		pattern: pattern,
		handler: handler,
		onClose: onClose,
	}
	b.subs[sub.id] = sub
	return sub, nil
}

// Channel subscribes to pattern and returns a buffered channel of events.
// Events are dropped when the buffer is full. The channel is closed when
// the subscription is cancelled or the bus is closed.
func (b *Bus) Channel(pattern Topic, size int) (<-chan Event, Subscription, error) {
	return b.FilteredChannel(pattern, nil, size)
}

// FilteredChannel is like Channel but only buffers events that pass
// filter, so unrelated traffic never takes buffer space. A nil filter
// passes everything.
func (b *Bus) FilteredChannel(pattern Topic, filter Filter, size int) (<-chan Event, Subscription, error) {
	if size <= 0 {
		size = 64
	}
	ch := make(chan Event, size)

	// Sends and the final close are serialized so a send never races the close.
	var mu sync.Mutex
	closed := false

	handler := func(_ context.Context, e Event) {
		if filter != nil && !filter(e) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
	onClose := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}

	sub, err := b.subscribe(pattern, handler, onClose)
	if err != nil {
		return nil, nil, err
	}
	return ch, sub, nil
}

// Publish delivers an event built from topic, source and payload.
func (b *Bus) Publish(ctx context.Context, topic Topic, source string, payload any) error {
	return b.PublishEvent(ctx, New(topic, source, payload))
}

// PublishEvent delivers e to every matching subscription.
func (b *Bus) PublishEvent(ctx context.Context, e Event) error {
	if !e.Topic.IsValid() || e.Topic.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, e.Topic)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	matched := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if e.Topic.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })

	b.published.Add(1)
	for _, sub := range matched {
		b.deliver(ctx, sub, e)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, sub *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error("event handler panicked",
				zap.String("topic", string(e.Topic)),
				zap.Uint64("subscription", sub.id),
				zap.Any("panic", r))
		}
	}()
	sub.handler(ctx, e)
	b.delivered.Add(1)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Close cancels every subscription. Further publishes fail with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		Panics:        b.panics.Load(),
		Subscriptions: n,
	}
}
