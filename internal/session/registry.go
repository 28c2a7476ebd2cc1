package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/coordinator"
	"github.com/dshills/mermaidflow/internal/metrics"
)

// Errors returned by the registry.
var (
	// ErrNotFound indicates no session has the given ID.
	ErrNotFound = errors.New("session not found")

	// ErrClosed indicates the registry has been closed.
	ErrClosed = errors.New("session registry closed")
)

// DefaultIdleTimeout is how long a session may go unused before Reap
// closes it.
const DefaultIdleTimeout = 30 * time.Minute

// Info describes a live session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

type entry struct {
	coord     *coordinator.Coordinator
	createdAt time.Time
	lastSeen  time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTimeout sets the idle timeout. Zero disables reaping.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.idle = d
		}
	}
}

// WithCoordinatorOptions sets options applied to every new session.
func WithCoordinatorOptions(opts ...coordinator.Option) Option {
	return func(r *Registry) {
		r.coordOpts = append(r.coordOpts, opts...)
	}
}

// WithClock sets the time source for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// Registry maps session IDs to coordinators. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	closed   atomic.Bool

	idle      time.Duration
	coordOpts []coordinator.Option
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// Overrides from SetDelays; negative when unset.
	commitDelay time.Duration
	renderDelay time.Duration
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sessions:    make(map[string]*entry),
		idle:        DefaultIdleTimeout,
		commitDelay: -1,
		renderDelay: -1,
		now:         time.Now,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session seeded with seed.
func (r *Registry) Create(seed string) (*coordinator.Coordinator, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	id := uuid.NewString()
	opts := make([]coordinator.Option, 0, len(r.coordOpts)+3)
	opts = append(opts, r.coordOpts...)
	r.mu.Lock()
	if r.commitDelay >= 0 {
		opts = append(opts, coordinator.WithCommitDelay(r.commitDelay))
	}
	if r.renderDelay >= 0 {
		opts = append(opts, coordinator.WithRenderDelay(r.renderDelay))
	}
	r.mu.Unlock()
	opts = append(opts, coordinator.WithID(id))
	c := coordinator.New(seed, opts...)

	now := r.now()
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		_ = c.Close()
		return nil, ErrClosed
	}
	r.sessions[id] = &entry{coord: c, createdAt: now, lastSeen: now}
	r.mu.Unlock()

	r.metrics.SessionOpened()
	r.logger.Info("session created", zap.String("session", id))
	return c, nil
}

// SetDelays changes the debounce delays of every live session and of
// sessions created later. Negative values leave a delay unchanged.
func (r *Registry) SetDelays(commit, render time.Duration) {
	r.mu.Lock()
	if commit >= 0 {
		r.commitDelay = commit
	}
	if render >= 0 {
		r.renderDelay = render
	}
	live := make([]*coordinator.Coordinator, 0, len(r.sessions))
	for _, e := range r.sessions {
		live = append(live, e.coord)
	}
	r.mu.Unlock()

	for _, c := range live {
		c.SetDelays(commit, render)
	}
}

// Get returns the session with id and marks it as used.
func (r *Registry) Get(id string) (*coordinator.Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = r.now()
	return e.coord, nil
}

// CloseSession closes and removes the session with id.
func (r *Registry) CloseSession(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	r.closeEntry(id, e, "closed")
	return nil
}

func (r *Registry) closeEntry(id string, e *entry, reason string) {
	_ = e.coord.Close()
	r.metrics.SessionClosed()
	r.logger.Info("session "+reason, zap.String("session", id))
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.sessions))
	for id, e := range r.sessions {
		infos = append(infos, Info{ID: id, CreatedAt: e.createdAt, LastSeen: e.lastSeen})
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap closes sessions unused for longer than the idle timeout and returns
// how many were closed.
func (r *Registry) Reap() int {
	if r.idle <= 0 {
		return 0
	}

	cutoff := r.now().Add(-r.idle)
	expired := make(map[string]*entry)

	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired[id] = e
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for id, e := range expired {
		r.closeEntry(id, e, "expired")
	}
	return len(expired)
}

// Run reaps idle sessions periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.idle <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Reap(); n > 0 {
				r.logger.Debug("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close closes every session. Later calls to Create fail with ErrClosed.
// It is safe to call Close multiple times.
func (r *Registry) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for id, e := range sessions {
		r.closeEntry(id, e, "closed")
	}
	return nil
}
