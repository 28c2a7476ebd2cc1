package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/mermaidflow/internal/debounce"
)

// DefaultReloadDelay is how long Watch waits for writes to settle.
const DefaultReloadDelay = 100 * time.Millisecond

// ReloadFunc receives the reloaded configuration or the error that
// prevented it from loading.
type ReloadFunc func(cfg *Config, err error)

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	delay time.Duration
}

// WithReloadDelay sets the settle time between the last file event and
// the reload.
func WithReloadDelay(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// Watch reloads the configuration at path whenever the file changes and
// passes the result to fn. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file on save are handled.
func Watch(ctx context.Context, path string, fn ReloadFunc, opts ...WatchOption) error {
	o := watchOptions{delay: DefaultReloadDelay}
	for _, opt := range opts {
		opt(&o)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(absPath), err)
	}

	reload := debounce.New(o.delay, func(struct{}) {
		fn(Load(path))
	})
	defer reload.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload.Trigger(struct{}{})
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("watching config: %w", err))
		}
	}
}
