package event

import "context"

// Publisher publishes events on behalf of a single source.
// A Publisher with a nil bus discards everything.
type Publisher struct {
	bus    *Bus
	source string
}

// NewPublisher creates a publisher for source. bus may be nil.
func NewPublisher(bus *Bus, source string) *Publisher {
	return &Publisher{bus: bus, source: source}
}

// Publish delivers an event with the publisher's source.
func (p *Publisher) Publish(ctx context.Context, topic Topic, payload any) error {
	if p.bus == nil {
		return nil
	}
	return p.bus.Publish(ctx, topic, p.source, payload)
}

// Notify publishes a notification.
func (p *Publisher) Notify(ctx context.Context, n Notification) error {
	return p.Publish(ctx, TopicNotification, n)
}

// Source returns the source stamped on published events.
func (p *Publisher) Source() string {
	return p.source
}

// Bus returns the underlying bus, which may be nil.
func (p *Publisher) Bus() *Bus {
	return p.bus
}
