package app

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/mermaidflow/internal/config"
	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/keymap"
	"github.com/dshills/mermaidflow/internal/logging"
)

// Serve runs the HTTP API on the configured address along with the idle
// session reaper and, when the configuration came from a file, the config
// watcher. It returns when ctx is cancelled or any of them fails.
func (a *Application) Serve(ctx context.Context) error {
	if a.down.Load() {
		return ErrShutdown
	}
	cfg := a.Config()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.ListenAndServe(ctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		return a.sessions.Run(ctx)
	})
	if cfg.Path != "" {
		g.Go(func() error {
			return config.Watch(ctx, cfg.Path, a.Reload)
		})
	}
	return g.Wait()
}

// Reload applies a reloaded configuration. The log level, keymap and edit
// delays take effect immediately; other settings apply after a restart. A
// load error keeps the current configuration.
func (a *Application) Reload(cfg *config.Config, err error) {
	if err != nil {
		a.logger.Warn("config reload failed, keeping current configuration", zap.Error(err))
		return
	}

	km, err := keymap.FromConfig(cfg.Keymap)
	if err != nil {
		a.logger.Warn("config reload: invalid keymap", zap.Error(err))
		return
	}
	a.keymap.Replace(km)
	a.sessions.SetDelays(cfg.Editor.CommitDelay, cfg.Editor.RenderDelay)

	if a.level != (zap.AtomicLevel{}) {
		if lvl, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			a.level.SetLevel(lvl)
		}
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.logger.Info("config reloaded", zap.String("path", cfg.Path))
	_ = a.bus.Publish(context.Background(), event.TopicConfigReloaded, "config", cfg.Path)
}
