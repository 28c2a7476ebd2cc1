package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/debounce"
	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/history"
	"github.com/dshills/mermaidflow/internal/keymap"
	"github.com/dshills/mermaidflow/internal/metrics"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/repair"
)

// Snapshot labels written by the coordinator.
const (
	LabelManualEdit   = "Manual edit"
	LabelBeforeAIFix  = "Before AI fix"
	LabelAIFixApplied = "AI fix applied"
)

// Notification titles and display durations.
const (
	TitleUndo      = "Undo applied"
	TitleRedo      = "Redo applied"
	TitleFixOK     = "AI Fix Applied"
	TitleFixFailed = "AI Fix Failed"

	shortNotice   = time.Second
	successNotice = 3 * time.Second
	errorNotice   = 5 * time.Second
)

// Coordinator orchestrates editing, history, rendering and repair for
// one session. All methods are safe for concurrent use.
type Coordinator struct {
	mu sync.Mutex

	id      string
	text    string
	history *history.History

	commits *debounce.Debouncer[string]
	renders *debounce.Debouncer[string]

	// Render state, guarded by mu.
	renderSeq uint64
	rstate    RenderState
	rendered  string // text of the applied render
	artifact  *render.Artifact

	// Repair state, guarded by mu.
	repairSeq uint64
	repairing bool

	events *event.Publisher

	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // in-flight renders

	// Configuration
	commitDelay time.Duration
	renderDelay time.Duration
	historyOpts []history.Option
	clock       debounce.Clock
	renderer    render.Renderer
	repairer    repair.Repairer
	bus         *event.Bus
	keymap      *keymap.Keymap
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// New creates a coordinator whose text and history start at seed.
func New(seed string, opts ...Option) *Coordinator {
	c := &Coordinator{
		id:          uuid.NewString(),
		text:        seed,
		commitDelay: DefaultCommitDelay,
		renderDelay: DefaultRenderDelay,
		clock:       debounce.RealClock(),
		keymap:      keymap.Default(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("session", c.id))
	c.events = event.NewPublisher(c.bus, c.id)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	hopts := append([]history.Option{history.WithClock(c.clock.Now)}, c.historyOpts...)
	c.history = history.New(seed, hopts...)

	c.commits = debounce.New(c.commitDelay, func(text string) {
		c.commitText(text, LabelManualEdit)
	}, debounce.WithClock(c.clock))
	c.renders = debounce.New(c.renderDelay, c.startRender, debounce.WithClock(c.clock))

	return c
}

// SetDelays changes the commit and render debounce delays for later
// edits. Negative values leave the corresponding delay unchanged.
func (c *Coordinator) SetDelays(commit, render time.Duration) {
	if commit >= 0 {
		c.commits.SetDelay(commit)
	}
	if render >= 0 {
		c.renders.SetDelay(render)
	}
}

// Delays returns the commit and render debounce delays.
func (c *Coordinator) Delays() (commit, render time.Duration) {
	return c.commits.Delay(), c.renders.Delay()
}

// ID returns the session ID.
func (c *Coordinator) ID() string {
	return c.id
}

// Text returns the current editor text.
func (c *Coordinator) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// History returns the session's history.
func (c *Coordinator) History() *history.History {
	return c.history
}

// Keymap returns the bindings used by HandleKey.
func (c *Coordinator) Keymap() *keymap.Keymap {
	return c.keymap
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Edit records a raw text change. The commit and render debouncers are
// restarted; the latest text wins when they fire.
func (c *Coordinator) Edit(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.text = text
	c.mu.Unlock()

	c.commits.Trigger(text)
	c.renders.Trigger(text)
}

// Commit records the current text immediately with label, replacing any
// pending debounced commit. It returns false if the text equals the last
// committed content.
func (c *Coordinator) Commit(label string) (history.Snapshot, bool) {
	if c.isClosed() {
		return history.Snapshot{}, false
	}
	if label == "" {
		label = LabelManualEdit
	}
	c.commits.Cancel()
	return c.commitText(c.Text(), label)
}

func (c *Coordinator) commitText(text, label string) (history.Snapshot, bool) {
	snap, ok := c.history.Commit(text, label)
	c.metrics.Commit(ok)
	if !ok {
		return snap, false
	}

	c.logger.Debug("snapshot committed",
		zap.String("label", label),
		zap.Int("bytes", len(text)))
	c.publish(event.TopicHistoryCommitted, c.historyChanged(label, text))
	return snap, true
}

// Undo moves history back one snapshot and makes its content the editor
// text. A pending edit is committed first so it can be redone. It returns
// false when there is nothing to undo.
func (c *Coordinator) Undo() (string, bool) {
	return c.navigate(c.history.Undo, event.TopicHistoryUndo, TitleUndo, c.metrics.Undo)
}

// Redo moves history forward one snapshot. It returns false when there is
// nothing to redo.
func (c *Coordinator) Redo() (string, bool) {
	return c.navigate(c.history.Redo, event.TopicHistoryRedo, TitleRedo, c.metrics.Redo)
}

func (c *Coordinator) navigate(step func() (string, bool), topic event.Topic, title string, record func(bool)) (string, bool) {
	if c.isClosed() {
		return "", false
	}

	c.commits.Flush()

	content, ok := step()
	record(ok)
	if !ok {
		return "", false
	}

	c.replaceText(content)
	c.publish(topic, c.historyChanged(c.history.Current().Label, content))
	c.notify(event.LevelInfo, title, "", shortNotice)
	return content, true
}

// Reset commits any pending edit and collapses history to the current
// snapshot.
func (c *Coordinator) Reset() history.Snapshot {
	if c.isClosed() {
		return c.history.Current()
	}
	c.commits.Flush()
	snap := c.history.Reset()
	c.publish(event.TopicHistoryReset, c.historyChanged(snap.Label, snap.Content))
	return snap
}

// ResetTo discards pending edits and history and starts over from seed.
func (c *Coordinator) ResetTo(seed string) history.Snapshot {
	if c.isClosed() {
		return c.history.Current()
	}
	c.commits.Cancel()
	snap := c.history.ResetTo(seed)
	c.replaceText(seed)
	c.publish(event.TopicHistoryReset, c.historyChanged(snap.Label, snap.Content))
	return snap
}

// replaceText sets the editor text programmatically and schedules a render.
func (c *Coordinator) replaceText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()

	c.publish(event.TopicTextChanged, event.TextChanged{Text: text})
	c.renders.Trigger(text)
}

// KeyResult reports what HandleKey did.
type KeyResult struct {
	Action  keymap.Action `json:"action"`
	Applied bool          `json:"applied"`
	Text    string        `json:"text"`
}

// HandleKey runs the action bound to the key chord spec. Unbound chords
// and actions that are unavailable (undo at the oldest snapshot) are
// no-ops. A failed repair is reported through the returned error.
func (c *Coordinator) HandleKey(ctx context.Context, spec string) (KeyResult, error) {
	action := c.keymap.Resolve(spec)
	result := KeyResult{Action: action}

	switch action {
	case keymap.ActionUndo:
		_, result.Applied = c.Undo()
	case keymap.ActionRedo:
		_, result.Applied = c.Redo()
	case keymap.ActionCommit:
		_, result.Applied = c.Commit(LabelManualEdit)
	case keymap.ActionRepair:
		if _, err := c.Repair(ctx); err != nil {
			result.Text = c.Text()
			return result, err
		}
		result.Applied = true
	}

	result.Text = c.Text()
	return result, nil
}

// Wait blocks until in-flight renders have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels pending timers and in-flight calls and waits for renders
// to finish. It is safe to call more than once.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.commits.Cancel()
	c.renders.Cancel()
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Coordinator) historyChanged(label, content string) event.HistoryChanged {
	st := c.history.State()
	return event.HistoryChanged{
		Cursor:  st.Cursor,
		Len:     len(st.Entries),
		CanUndo: st.CanUndo,
		CanRedo: st.CanRedo,
		Label:   label,
		Content: content,
	}
}

func (c *Coordinator) publish(topic event.Topic, payload any) {
	err := c.events.Publish(context.Background(), topic, payload)
	if err != nil && !errors.Is(err, event.ErrBusClosed) {
		c.logger.Debug("publish failed", zap.String("topic", string(topic)), zap.Error(err))
	}
}

func (c *Coordinator) notify(level event.Level, title, description string, d time.Duration) {
	err := c.events.Notify(context.Background(), event.Notification{
		Level:       level,
		Title:       title,
		Description: description,
		Duration:    d,
	})
	if err != nil && !errors.Is(err, event.ErrBusClosed) {
		c.logger.Debug("notify failed", zap.String("title", title), zap.Error(err))
	}
}
