package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache defaults.
const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 128

	// DefaultSharedTimeout bounds a render shared by concurrent callers.
	DefaultSharedTimeout = 30 * time.Second
)

// CacheOption configures a CachingRenderer.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	ttl     time.Duration
	maxSize int
	timeout time.Duration
	now     func() time.Time
}

// WithCacheTTL sets how long artifacts are reused.
func WithCacheTTL(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithCacheSize bounds the number of cached artifacts.
func WithCacheSize(n int) CacheOption {
	return func(o *cacheOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithSharedTimeout bounds a render shared by concurrent callers. The
// shared call does not end when one caller's context does.
func WithSharedTimeout(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCacheClock sets the time source for expiry.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(o *cacheOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// CachingRenderer caches successful renders of a FormatRenderer.
// Concurrent requests for the same markup and format share one call.
// Errors are never cached.
type CachingRenderer struct {
	next    FormatRenderer
	format  Format
	timeout time.Duration
	cache   *ttlCache[string, *Artifact]
	group   singleflight.Group
}

// NewCaching wraps next. Render uses format as its default.
func NewCaching(next FormatRenderer, format Format, opts ...CacheOption) *CachingRenderer {
	o := cacheOptions{
		ttl:     DefaultCacheTTL,
		maxSize: DefaultCacheSize,
		timeout: DefaultSharedTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if format == "" {
		format = FormatSVG
	}
	return &CachingRenderer{
		next:    next,
		format:  format,
		timeout: o.timeout,
		cache:   newTTLCache[string, *Artifact](o.ttl, o.maxSize, o.now),
	}
}

// Render renders markup in the default format.
func (c *CachingRenderer) Render(ctx context.Context, markup string) (*Artifact, error) {
	return c.RenderFormat(ctx, markup, c.format)
}

// RenderFormat returns a cached artifact or renders and caches a new one.
//
// Concurrent callers share one render, which runs detached from their
// contexts so that one caller giving up does not fail the others. Each
// caller stops waiting when its own ctx is done.
func (c *CachingRenderer) RenderFormat(ctx context.Context, markup string, format Format) (*Artifact, error) {
	key := cacheKey(markup, format)
	if a, ok := c.cache.Get(key); ok {
		return a, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if a, ok := c.cache.Get(key); ok {
			return a, nil
		}
		rctx, cancel := context.WithTimeout(shared, c.timeout)
		defer cancel()

		a, err := c.next.RenderFormat(rctx, markup, format)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, a)
		return a, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Artifact), nil
	}
}

// Len returns the number of cached artifacts.
func (c *CachingRenderer) Len() int {
	return c.cache.Len()
}

func cacheKey(markup string, format Format) string {
	sum := sha256.Sum256([]byte(markup))
	return string(format) + ":" + hex.EncodeToString(sum[:])
}
