package coordinator

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/debounce"
	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/history"
	"github.com/dshills/mermaidflow/internal/keymap"
	"github.com/dshills/mermaidflow/internal/metrics"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/repair"
)

// Default debounce windows.
const (
	DefaultCommitDelay = time.Second
	DefaultRenderDelay = 300 * time.Millisecond
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithID sets the session ID used as the event source.
func WithID(id string) Option {
	return func(c *Coordinator) {
		if id != "" {
			c.id = id
		}
	}
}

// WithCommitDelay sets how long typing must pause before a snapshot is
// committed.
func WithCommitDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.commitDelay = d
		}
	}
}

// WithRenderDelay sets how long typing must pause before re-rendering.
func WithRenderDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.renderDelay = d
		}
	}
}

// WithMaxEntries bounds the history log.
func WithMaxEntries(n int) Option {
	return func(c *Coordinator) {
		c.historyOpts = append(c.historyOpts, history.WithMaxEntries(n))
	}
}

// WithHistoryOptions passes options to the history.
func WithHistoryOptions(opts ...history.Option) Option {
	return func(c *Coordinator) {
		c.historyOpts = append(c.historyOpts, opts...)
	}
}

// WithClock sets the clock for debouncing and timing.
func WithClock(clock debounce.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRenderer sets the diagram renderer.
func WithRenderer(r render.Renderer) Option {
	return func(c *Coordinator) {
		c.renderer = r
	}
}

// WithRepairer sets the AI repairer. Without one, Repair fails with
// repair.ErrMissingAPIKey.
func WithRepairer(r repair.Repairer) Option {
	return func(c *Coordinator) {
		c.repairer = r
	}
}

// WithBus sets the event bus.
func WithBus(b *event.Bus) Option {
	return func(c *Coordinator) {
		c.bus = b
	}
}

// WithKeymap sets the keyboard bindings used by HandleKey.
func WithKeymap(km *keymap.Keymap) Option {
	return func(c *Coordinator) {
		if km != nil {
			c.keymap = km
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}
