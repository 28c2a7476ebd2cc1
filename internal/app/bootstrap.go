package app

import (
	"context"

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

// bootstrapper creates components in dependency order and closes the
// ones already created if a later step fails.
type bootstrapper struct {
	app  *Application
	opts Options
}

func (b *bootstrapper) bootstrap(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"event bus", b.initEventBus},
		{"metrics", b.initMetrics},
		{"keymap", b.initKeymap},
		{"renderer", b.initRenderer},
		{"repairer", b.initRepairer},
		{"store", b.initStore},
		{"exporter", b.initExporter},
		{"sessions", b.initSessions},
		{"server", b.initServer},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			_ = b.app.Shutdown()
			return &InitError{Component: step.name, Err: err}
		}
		b.app.logger.Debug("initialized", zap.String("component", step.name))
	}
	return nil
}

func (b *bootstrapper) onClose(name string, fn func() error) {
	b.app.closers = append(b.app.closers, closer{name: name, fn: fn})
}

func (b *bootstrapper) initEventBus(context.Context) error {
	b.app.bus = event.NewBus(event.WithLogger(b.app.logger.Named("event")))
	b.onClose("event bus", func() error {
		b.app.bus.Close()
		return nil
	})
	return nil
}

func (b *bootstrapper) initMetrics(context.Context) error {
	b.app.metrics = metrics.New()
	return nil
}

func (b *bootstrapper) initKeymap(context.Context) error {
	km, err := keymap.FromConfig(b.app.cfg.Keymap)
	if err != nil {
		return err
	}
	b.app.keymap = km
	return nil
}

func (b *bootstrapper) initRenderer(context.Context) error {
	if b.opts.Renderer != nil {
		b.app.renderer = b.opts.Renderer
		return nil
	}

	b.app.renderer = NewRenderer(b.app.cfg.Render, b.app.logger)
	return nil
}

func (b *bootstrapper) initRepairer(ctx context.Context) error {
	if b.opts.Repairer != nil {
		b.app.repairer = b.opts.Repairer
		return nil
	}
	if !b.app.cfg.RepairEnabled() {
		b.app.logger.Info("ai repair disabled: no api key configured")
		return nil
	}

	gemini, err := NewRepairer(ctx, b.app.cfg.AI, b.app.logger)
	if err != nil {
		return err
	}
	b.app.repairer = gemini
	return nil
}

func (b *bootstrapper) initStore(ctx context.Context) error {
	if b.opts.Store != nil {
		b.app.store = b.opts.Store
	} else {
		sc := b.app.cfg.Store
		st, err := store.Open(ctx, store.Config{
			Driver:        sc.Driver,
			Path:          sc.Path,
			RedisAddr:     sc.RedisAddr,
			RedisPassword: sc.RedisPassword,
			RedisDB:       sc.RedisDB,
			RedisPrefix:   sc.RedisPrefix,
		})
		if err != nil {
			return err
		}
		b.app.store = st
	}
	b.onClose("store", b.app.store.Close)
	return nil
}

func (b *bootstrapper) initExporter(context.Context) error {
	b.app.exporter = export.New(b.app.renderer, b.app.logger.Named("export"))
	return nil
}

func (b *bootstrapper) initSessions(context.Context) error {
	cfg := b.app.cfg
	opts := []coordinator.Option{
		coordinator.WithCommitDelay(cfg.Editor.CommitDelay),
		coordinator.WithRenderDelay(cfg.Editor.RenderDelay),
		coordinator.WithMaxEntries(cfg.History.MaxEntries),
		coordinator.WithRenderer(b.app.renderer),
		coordinator.WithBus(b.app.bus),
		coordinator.WithKeymap(b.app.keymap),
		coordinator.WithLogger(b.app.logger.Named("coordinator")),
		coordinator.WithMetrics(b.app.metrics),
	}
	if b.app.repairer != nil {
		opts = append(opts, coordinator.WithRepairer(b.app.repairer))
	}

	b.app.sessions = session.New(
		session.WithIdleTimeout(cfg.Server.SessionIdle),
		session.WithCoordinatorOptions(opts...),
		session.WithLogger(b.app.logger.Named("session")),
		session.WithMetrics(b.app.metrics),
	)
	b.onClose("sessions", b.app.sessions.Close)
	return nil
}

func (b *bootstrapper) initServer(context.Context) error {
	cfg := b.app.cfg
	var validator repair.KeyValidator
	if v, ok := b.app.repairer.(repair.KeyValidator); ok {
		validator = v
	}
	b.app.server = server.New(server.Config{
		Sessions:     b.app.sessions,
		Store:        b.app.store,
		Exporter:     b.app.exporter,
		Bus:          b.app.bus,
		Metrics:      b.app.metrics,
		Logger:       b.app.logger.Named("http"),
		KeyValidator: validator,
		Seed:         cfg.Editor.Seed,
		Background:   cfg.Export.Background,
	})
	return nil
}

// NewRenderer returns the cached Kroki renderer described by rc.
func NewRenderer(rc config.RenderConfig, logger *zap.Logger) *render.CachingRenderer {
	kroki := render.NewKroki(rc.URL,
		render.WithTimeout(rc.Timeout),
		render.WithLogger(logger.Named("render")))
	return render.NewCaching(kroki, render.FormatSVG,
		render.WithCacheTTL(rc.CacheTTL),
		render.WithCacheSize(rc.CacheSize))
}

// NewRepairer returns the Gemini repairer described by ai.
func NewRepairer(ctx context.Context, ai config.AIConfig, logger *zap.Logger) (*repair.GeminiRepairer, error) {
	return repair.NewGemini(ctx, ai.APIKey,
		repair.WithModel(ai.Model),
		repair.WithTimeout(ai.Timeout),
		repair.WithLogger(logger.Named("repair")))
}
