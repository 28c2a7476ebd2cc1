// Package app builds the editor's components from configuration and
// manages their lifecycle.
//
// Components are created in dependency order (event bus, metrics,
// renderer, repairer, store, exporter, sessions, HTTP server) and closed in
// reverse. Serve runs the HTTP API, the idle-session reaper and the config
// file watcher together until the context is cancelled.
package app

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/config"
	"github.com/dshills/mermaidflow/internal/coordinator"
	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/export"
	"github.com/dshills/mermaidflow/internal/keymap"
	"github.com/dshills/mermaidflow/internal/metrics"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/repair"
	"github.com/dshills/mermaidflow/internal/server"
	"github.com/dshills/mermaidflow/internal/session"
	"github.com/dshills/mermaidflow/internal/store"
)

// Options overrides parts of the application. Zero values select the
// components described by the configuration.
type Options struct {
	Logger *zap.Logger

	// Level controls Logger's verbosity on config reload. A zero Level
	// disables runtime level changes.
	Level zap.AtomicLevel

	Renderer render.FormatRenderer
	Repairer repair.Repairer
	Store    store.Store
}

// Application owns every long-lived component.
type Application struct {
	mu  sync.RWMutex
	cfg *config.Config

	logger *zap.Logger
	level  zap.AtomicLevel

	bus      *event.Bus
	metrics  *metrics.Metrics
	keymap   *keymap.Keymap
	renderer render.FormatRenderer
	repairer repair.Repairer
	store    store.Store
	exporter *export.Exporter
	sessions *session.Registry
	server   *server.Server

	closers []closer
	down    atomic.Bool
}

type closer struct {
	name string
	fn   func() error
}

// New builds the application described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Application, error) {
	a := &Application{
		cfg:    cfg,
		logger: opts.Logger,
		level:  opts.Level,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	b := &bootstrapper{app: a, opts: opts}
	if err := b.bootstrap(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns the current configuration.
func (a *Application) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Bus returns the event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Metrics returns the metrics registry.
func (a *Application) Metrics() *metrics.Metrics { return a.metrics }

// Keymap returns the shared keymap.
func (a *Application) Keymap() *keymap.Keymap { return a.keymap }

// Renderer returns the diagram renderer.
func (a *Application) Renderer() render.FormatRenderer { return a.renderer }

// Repairer returns the AI repairer, or nil when repair is disabled.
func (a *Application) Repairer() repair.Repairer { return a.repairer }

// Store returns the diagram store.
func (a *Application) Store() store.Store { return a.store }

// Exporter returns the exporter.
func (a *Application) Exporter() *export.Exporter { return a.exporter }

// Sessions returns the session registry.
func (a *Application) Sessions() *session.Registry { return a.sessions }

// Server returns the HTTP API.
func (a *Application) Server() *server.Server { return a.server }

// NewSession starts an editing session. An empty seed uses the configured
// one.
func (a *Application) NewSession(seed string) (*coordinator.Coordinator, error) {
	if a.down.Load() {
		return nil, ErrShutdown
	}
	if seed == "" {
		seed = a.Config().Editor.Seed
	}
	return a.sessions.Create(seed)
}

// Shutdown closes every component in reverse creation order. It is safe
// to call more than once.
func (a *Application) Shutdown() error {
	if a.down.Swap(true) {
		return nil
	}

	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("shutdown failed", zap.String("component", c.name), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	_ = a.logger.Sync()
	return first
}
