package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/mermaidflow/internal/coordinator"
	"github.com/dshills/mermaidflow/internal/debounce"
	"github.com/dshills/mermaidflow/internal/metrics"
)

func TestMain(m *testing.M) {
	// Started by an init in the genai dependency chain (cloud auth -> ochttp).
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRegistry(t *testing.T, opts ...Option) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	manual := debounce.NewManualClock(clock.now)
	base := []Option{
		WithClock(clock.Now),
		WithCoordinatorOptions(coordinator.WithClock(manual)),
	}
	r := New(append(base, opts...)...)
	t.Cleanup(func() { _ = r.Close() })
	return r, clock
}

func activeSessions(t *testing.T, m *metrics.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "mermaidflow_sessions_active" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("sessions gauge not registered")
	return 0
}

func TestCreateGet(t *testing.T) {
	r, _ := newRegistry(t)

	c, err := r.Create("graph TD\n  A")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, "graph TD\n  A", c.Text())

	got, err := r.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUniqueIDs(t *testing.T) {
	r, _ := newRegistry(t)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		c, err := r.Create("")
		require.NoError(t, err)
		assert.False(t, seen[c.ID()])
		seen[c.ID()] = true
	}
	assert.Equal(t, 10, r.Len())
}

func TestCloseSession(t *testing.T) {
	r, _ := newRegistry(t)

	c, err := r.Create("graph TD")
	require.NoError(t, err)

	require.NoError(t, r.CloseSession(c.ID()))
	assert.ErrorIs(t, r.CloseSession(c.ID()), ErrNotFound)
	_, err = r.Get(c.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Repair(context.Background())
	assert.ErrorIs(t, err, coordinator.ErrClosed)
}

func TestList(t *testing.T) {
	r, clock := newRegistry(t)

	a, err := r.Create("a")
	require.NoError(t, err)
	clock.Advance(time.Second)
	b, err := r.Create("b")
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID(), list[0].ID)
	assert.Equal(t, b.ID(), list[1].ID)
	assert.True(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

func TestReap(t *testing.T) {
	r, clock := newRegistry(t, WithIdleTimeout(10*time.Minute))

	stale, err := r.Create("stale")
	require.NoError(t, err)
	fresh, err := r.Create("fresh")
	require.NoError(t, err)

	clock.Advance(8 * time.Minute)
	_, err = r.Get(fresh.ID())
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	assert.Equal(t, 1, r.Reap())

	_, err = r.Get(stale.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestReapDisabled(t *testing.T) {
	r, clock := newRegistry(t, WithIdleTimeout(0))

	_, err := r.Create("a")
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	assert.Zero(t, r.Reap())
	assert.Equal(t, 1, r.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _ := newRegistry(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

func TestCloseAll(t *testing.T) {
	m := metrics.New()
	r, _ := newRegistry(t, WithMetrics(m))

	for i := 0; i < 3; i++ {
		_, err := r.Create("x")
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, activeSessions(t, m))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Zero(t, r.Len())
	assert.Equal(t, 0.0, activeSessions(t, m))

	_, err := r.Create("y")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSetDelays(t *testing.T) {
	r, _ := newRegistry(t, WithCoordinatorOptions(
		coordinator.WithCommitDelay(time.Second),
		coordinator.WithRenderDelay(300*time.Millisecond)))

	live, err := r.Create("graph TD")
	require.NoError(t, err)

	r.SetDelays(2*time.Second, -1)

	commit, render := live.Delays()
	assert.Equal(t, 2*time.Second, commit)
	assert.Equal(t, 300*time.Millisecond, render)

	later, err := r.Create("graph TD")
	require.NoError(t, err)
	commit, render = later.Delays()
	assert.Equal(t, 2*time.Second, commit)
	assert.Equal(t, 300*time.Millisecond, render)
}
