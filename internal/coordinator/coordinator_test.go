package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/mermaidflow/internal/debounce"
	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/history"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/repair"
)

func TestMain(m *testing.M) {
	// Started by an init in the genai dependency chain (cloud auth -> ochttp).
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const seed = "graph TD\n  A --> B"

// recorder captures every event published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) topics() []event.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Topic, len(r.events))
	for i, e := range r.events {
		out[i] = e.Topic
	}
	return out
}

func (r *recorder) notifications() []event.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Notification
	for _, e := range r.events {
		if n, ok := e.Payload.(event.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

// fakeRenderer renders anything except markup containing "bad".
func fakeRenderer(calls *int, mu *sync.Mutex) render.Renderer {
	return render.RendererFunc(func(_ context.Context, markup string) (*render.Artifact, error) {
		if mu != nil {
			mu.Lock()
			*calls++
			mu.Unlock()
		}
		if strings.Contains(markup, "bad") {
			return nil, &render.Error{Message: "Parse error on line 2"}
		}
		return &render.Artifact{
			Format:      render.FormatSVG,
			ContentType: render.FormatSVG.ContentType(),
			Data:        []byte("<svg>" + markup + "</svg>"),
		}, nil
	})
}

type fixture struct {
	c     *Coordinator
	clock *debounce.ManualClock
	bus   *event.Bus
	rec   *recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	clock := debounce.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	bus := event.NewBus()
	rec := &recorder{}
	_, err := bus.Subscribe("**", rec.handle)
	require.NoError(t, err)

	base := []Option{
		WithID("test-session"),
		WithClock(clock),
		WithBus(bus),
		WithRenderer(fakeRenderer(nil, nil)),
	}
	c := New(seed, append(base, opts...)...)
	t.Cleanup(func() {
		_ = c.Close()
		bus.Close()
	})
	return &fixture{c: c, clock: clock, bus: bus, rec: rec}
}

func (f *fixture) settle() {
	f.clock.Advance(DefaultCommitDelay)
	f.c.Wait()
}

func TestNew(t *testing.T) {
	f := newFixture(t)

	st := f.c.State()
	assert.Equal(t, "test-session", st.ID)
	assert.Equal(t, seed, st.Text)
	require.Len(t, st.History.Entries, 1)
	assert.Equal(t, history.LabelInitial, st.History.Current().Label)
	assert.False(t, st.PendingCommit)
	assert.False(t, st.Repairing)
}

func TestEditCoalescesIntoOneCommit(t *testing.T) {
	f := newFixture(t)

	f.c.Edit(seed + "\n  B --> C")
	f.clock.Advance(500 * time.Millisecond)
	f.c.Edit(seed + "\n  B --> D")
	f.clock.Advance(500 * time.Millisecond)

	assert.Equal(t, 1, f.c.History().Len(), "commit window restarts on each edit")
	assert.True(t, f.c.State().PendingCommit)

	f.clock.Advance(500 * time.Millisecond)
	f.c.Wait()

	entries := f.c.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, seed+"\n  B --> D", entries[1].Content)
	assert.Equal(t, LabelManualEdit, entries[1].Label)
	assert.False(t, f.c.State().PendingCommit)
}

func TestSetDelays(t *testing.T) {
	f := newFixture(t)

	f.c.SetDelays(200*time.Millisecond, -1)
	commit, render := f.c.Delays()
	assert.Equal(t, 200*time.Millisecond, commit)
	assert.Equal(t, DefaultRenderDelay, render)

	f.c.Edit(seed + "\n  B --> C")
	f.clock.Advance(200 * time.Millisecond)
	f.c.Wait()

	assert.Equal(t, 2, f.c.History().Len())
}

func TestEditBackToCommittedTextIsNoop(t *testing.T) {
	f := newFixture(t)

	f.c.Edit(seed + " ")
	f.c.Edit(seed)
	f.settle()

	assert.Equal(t, 1, f.c.History().Len())
}

func TestCommit(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("graph LR\n  X --> Y")
	snap, ok := f.c.Commit("Checkpoint")
	require.True(t, ok)
	assert.Equal(t, "Checkpoint", snap.Label)
	assert.False(t, f.c.State().PendingCommit)

	// The replaced debounced commit never fires.
	f.settle()
	assert.Equal(t, 2, f.c.History().Len())

	_, ok = f.c.Commit("")
	assert.False(t, ok, "unchanged text is not recorded")
}

func TestUndoRedo(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	f.settle()
	f.c.Edit("v2")

	// Undo flushes the pending "v2" first, so undo lands on v1.
	text, ok := f.c.Undo()
	require.True(t, ok)
	assert.Equal(t, "v1", text)
	assert.Equal(t, "v1", f.c.Text())

	text, ok = f.c.Undo()
	require.True(t, ok)
	assert.Equal(t, seed, text)

	_, ok = f.c.Undo()
	assert.False(t, ok)
	assert.Equal(t, seed, f.c.Text())

	text, ok = f.c.Redo()
	require.True(t, ok)
	assert.Equal(t, "v1", text)
	text, ok = f.c.Redo()
	require.True(t, ok)
	assert.Equal(t, "v2", text)

	_, ok = f.c.Redo()
	assert.False(t, ok)
	f.c.Wait()

	var titles []string
	for _, n := range f.rec.notifications() {
		titles = append(titles, n.Title)
		assert.Equal(t, event.LevelInfo, n.Level)
		assert.Equal(t, time.Second, n.Duration)
	}
	assert.Equal(t, []string{TitleUndo, TitleUndo, TitleRedo, TitleRedo}, titles)
}

func TestUndoDoesNotRecordRestoredText(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	f.settle()
	f.c.Undo()
	f.settle()

	st := f.c.History().State()
	assert.Len(t, st.Entries, 2)
	assert.Equal(t, 0, st.Cursor)
	assert.True(t, st.CanRedo)
}

func TestEditAfterUndoTruncatesRedo(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	f.settle()
	f.c.Edit("v2")
	f.settle()
	f.c.Undo()

	f.c.Edit("v3")
	f.settle()

	var got []string
	for _, e := range f.c.History().Entries() {
		got = append(got, e.Content)
	}
	assert.Equal(t, []string{seed, "v1", "v3"}, got)
	assert.False(t, f.c.History().CanRedo())
}

func TestMaxEntries(t *testing.T) {
	f := newFixture(t, WithMaxEntries(3))

	for _, s := range []string{"a", "b", "c", "d"} {
		f.c.Edit(s)
		f.settle()
	}

	st := f.c.History().State()
	require.Len(t, st.Entries, 3)
	assert.Equal(t, "b", st.Entries[0].Content)
	assert.Equal(t, 2, st.Cursor)
}

func TestReset(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	f.settle()
	f.c.Edit("v2")

	snap := f.c.Reset()
	assert.Equal(t, "v2", snap.Content, "pending edit is committed before collapsing")
	assert.Equal(t, 1, f.c.History().Len())
	assert.False(t, f.c.History().CanUndo())
}

func TestResetTo(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	f.settle()
	f.c.Edit("v2")

	snap := f.c.ResetTo("graph LR\n  Start")
	assert.Equal(t, history.LabelCleared, snap.Label)
	assert.Equal(t, "graph LR\n  Start", f.c.Text())

	f.settle()
	assert.Equal(t, 1, f.c.History().Len(), "pending edit is dropped")
	assert.Contains(t, f.rec.topics(), event.TopicTextChanged)
}

func TestRenderDebounced(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	f := newFixture(t, WithRenderer(fakeRenderer(&calls, &mu)))

	f.c.Edit("graph TD\n  A")
	f.clock.Advance(100 * time.Millisecond)
	f.c.Edit("graph TD\n  A --> Z")
	f.clock.Advance(DefaultRenderDelay)
	f.c.Wait()

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	art := f.c.Artifact()
	require.NotNil(t, art)
	assert.Equal(t, "<svg>graph TD\n  A --> Z</svg>", string(art.Data))

	rs := f.c.RenderState()
	assert.Equal(t, uint64(1), rs.Seq)
	assert.Equal(t, uint64(1), rs.Applied)
	assert.True(t, rs.HasArtifact)
	assert.False(t, rs.InFlight)
	assert.Contains(t, f.rec.topics(), event.TopicRenderSucceeded)
}

func TestRenderErrorKeepsLastArtifact(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.RenderNow(context.Background())
	require.NoError(t, err)
	good := f.c.Artifact()
	require.NotNil(t, good)

	f.c.Edit("graph TD\n  bad -->")
	f.settle()

	rs := f.c.RenderState()
	assert.Equal(t, "Parse error on line 2", rs.SyntaxError)
	assert.NotEmpty(t, rs.Error)
	assert.Same(t, good, f.c.Artifact())
	assert.Contains(t, f.rec.topics(), event.TopicRenderFailed)

	f.c.Edit(seed + "\n  B --> C")
	f.settle()
	rs = f.c.RenderState()
	assert.Empty(t, rs.Error)
	assert.Empty(t, rs.SyntaxError)
}

func TestRenderLastWriteWins(t *testing.T) {
	release := make(chan struct{})
	renderer := render.RendererFunc(func(ctx context.Context, markup string) (*render.Artifact, error) {
		if markup == "slow" {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &render.Artifact{Format: render.FormatSVG, Data: []byte(markup)}, nil
	})
	f := newFixture(t, WithRenderer(renderer))

	f.c.Edit("slow")
	f.clock.Advance(DefaultRenderDelay)

	f.c.Edit("fast")
	art, err := f.c.RenderNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fast", string(art.Data))

	close(release)
	f.c.Wait()

	assert.Equal(t, "fast", string(f.c.Artifact().Data))
	assert.Equal(t, uint64(2), f.c.RenderState().Applied)
}

func TestRenderNowWithoutRenderer(t *testing.T) {
	c := New(seed)
	defer c.Close()

	_, err := c.RenderNow(context.Background())
	assert.ErrorIs(t, err, ErrNoRenderer)

	// Edits still commit without a renderer.
	c.Edit("v1")
	_, ok := c.Commit("")
	assert.True(t, ok)
}

func TestRenderBlankTextClearsError(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("bad")
	f.settle()
	require.NotEmpty(t, f.c.RenderState().Error)

	f.c.Edit("   ")
	f.settle()
	rs := f.c.RenderState()
	assert.Empty(t, rs.Error)
	assert.False(t, rs.HasArtifact)
}

func TestRepair(t *testing.T) {
	var gotPrior string
	repairer := repair.RepairerFunc(func(_ context.Context, markup, prior string) (*repair.Result, error) {
		gotPrior = prior
		return &repair.Result{
			FixedText:   strings.ReplaceAll(markup, "bad", "good"),
			Explanation: "Replaced the invalid node.",
		}, nil
	})
	f := newFixture(t, WithRepairer(repairer))

	f.c.Edit("graph TD\n  bad --> B")
	f.clock.Advance(DefaultRenderDelay)
	f.c.Wait()

	res, err := f.c.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n  good --> B", res.FixedText)
	assert.Equal(t, "Parse error on line 2", gotPrior)

	entries := f.c.History().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, LabelBeforeAIFix, entries[1].Label)
	assert.Equal(t, "graph TD\n  bad --> B", entries[1].Content)
	assert.Equal(t, LabelAIFixApplied, entries[2].Label)
	assert.Equal(t, "graph TD\n  good --> B", f.c.Text())
	assert.False(t, f.c.State().PendingCommit)

	// Undo returns to the broken text.
	text, ok := f.c.Undo()
	require.True(t, ok)
	assert.Equal(t, "graph TD\n  bad --> B", text)
	f.c.Wait()

	notes := f.rec.notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, event.Notification{
		Level:       event.LevelSuccess,
		Title:       TitleFixOK,
		Description: "Replaced the invalid node.",
		Duration:    3 * time.Second,
	}, notes[0])
}

func TestRepairRejected(t *testing.T) {
	t.Run("no repairer", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.c.Repair(context.Background())
		require.ErrorIs(t, err, repair.ErrMissingAPIKey)

		var re *repair.Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, repair.MessageMissingKey, re.Message)
		assert.Equal(t, 1, f.c.History().Len())

		notes := f.rec.notifications()
		require.Len(t, notes, 1)
		assert.Equal(t, TitleFixFailed, notes[0].Title)
		assert.Equal(t, 5*time.Second, notes[0].Duration)
	})

	t.Run("blank text", func(t *testing.T) {
		called := false
		f := newFixture(t, WithRepairer(repair.RepairerFunc(
			func(context.Context, string, string) (*repair.Result, error) {
				called = true
				return nil, nil
			})))

		f.c.Edit("  \n ")
		_, err := f.c.Repair(context.Background())
		assert.ErrorIs(t, err, repair.ErrEmptyMarkup)
		assert.False(t, called)
	})
}

func TestRepairFailureLeavesHistory(t *testing.T) {
	upstream := errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key.")
	f := newFixture(t, WithRepairer(repair.RepairerFunc(
		func(context.Context, string, string) (*repair.Result, error) {
			return nil, upstream
		})))

	f.c.Edit("graph TD\n  A -->")
	_, err := f.c.Repair(context.Background())
	require.Error(t, err)

	var re *repair.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, repair.KindInvalidKey, re.Kind)
	assert.Equal(t, 1, f.c.History().Len())
	assert.Equal(t, "graph TD\n  A -->", f.c.Text())
	assert.True(t, f.c.State().PendingCommit, "pending edit survives a failed repair")
	assert.False(t, f.c.Repairing())
	assert.Contains(t, f.rec.topics(), event.TopicRepairFailed)
}

func TestRepairSuperseded(t *testing.T) {
	first := make(chan struct{})
	release := make(chan struct{})
	var n int
	var mu sync.Mutex
	repairer := repair.RepairerFunc(func(_ context.Context, markup, _ string) (*repair.Result, error) {
		mu.Lock()
		n++
		call := n
		mu.Unlock()
		if call == 1 {
			close(first)
			<-release
			return &repair.Result{FixedText: "stale fix"}, nil
		}
		return &repair.Result{FixedText: "fresh fix"}, nil
	})
	f := newFixture(t, WithRepairer(repairer))

	errc := make(chan error, 1)
	go func() {
		_, err := f.c.Repair(context.Background())
		errc <- err
	}()

	<-first
	res, err := f.c.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh fix", res.FixedText)

	close(release)
	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, "fresh fix", f.c.Text())
	f.c.Wait()
}

func TestHandleKey(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	f.settle()

	res, err := f.c.HandleKey(context.Background(), "ctrl+z")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, seed, res.Text)

	res, err = f.c.HandleKey(context.Background(), "Cmd+Shift+Z")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "v1", res.Text)

	res, err = f.c.HandleKey(context.Background(), "ctrl+y")
	require.NoError(t, err)
	assert.False(t, res.Applied, "redo at newest snapshot is a no-op")

	res, err = f.c.HandleKey(context.Background(), "ctrl+q")
	require.NoError(t, err)
	assert.False(t, res.Applied)

	_, err = f.c.HandleKey(context.Background(), "ctrl+r")
	assert.ErrorIs(t, err, repair.ErrMissingAPIKey)
	f.c.Wait()
}

func TestClose(t *testing.T) {
	f := newFixture(t)

	f.c.Edit("v1")
	require.NoError(t, f.c.Close())
	require.NoError(t, f.c.Close())

	f.settle()
	assert.Equal(t, 1, f.c.History().Len(), "pending commit is cancelled")
	assert.Zero(t, f.clock.Pending())

	f.c.Edit("v2")
	assert.Equal(t, "v1", f.c.Text())
	_, ok := f.c.Undo()
	assert.False(t, ok)
	_, err := f.c.Repair(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.c.RenderNow(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
