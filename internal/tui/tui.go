// Package tui is a terminal front end for one editing session.
//
// The left pane is a textarea bound to the coordinator; every keystroke is
// an Edit. The right pane shows the render state and the history log.
// Undo, redo, repair and commit go through the session keymap, and
// coordinator events arrive as tea messages.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dshills/mermaidflow/internal/coordinator"
	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/keymap"
)

const eventBuffer = 64

// eventMsg carries a coordinator event into Update.
type eventMsg struct{ event event.Event }

// keyResultMsg carries the outcome of a keymap action.
type keyResultMsg struct {
	result coordinator.KeyResult
	err    error
}

// clearNoticeMsg expires the notice with the given sequence number.
type clearNoticeMsg struct{ seq int }

type notice struct {
	seq   int
	level event.Level
	title string
	desc  string
}

// Model is the Bubble Tea model for the editor.
type Model struct {
	ctx    context.Context
	coord  *coordinator.Coordinator
	keymap *keymap.Keymap
	events <-chan event.Event
	sub    event.Subscription

	editor textarea.Model
	state  coordinator.State
	notice *notice
	seq    int

	width    int
	height   int
	quitting bool
}

// New creates a model for c, subscribing to its events on bus. bus may be
// nil, in which case the panels refresh only after local actions.
func New(ctx context.Context, c *coordinator.Coordinator, bus *event.Bus) (Model, error) {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Placeholder = "graph TD"
	ta.SetValue(c.Text())
	ta.Focus()

	m := Model{
		ctx:    ctx,
		coord:  c,
		keymap: c.Keymap(),
		editor: ta,
		state:  c.State(),
	}

	if bus != nil {
		ch, sub, err := bus.FilteredChannel("**", event.BySource(c.ID()), eventBuffer)
		if err != nil {
			return Model{}, err
		}
		m.events = ch
		m.sub = sub
	}
	return m, nil
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, c *coordinator.Coordinator, bus *event.Bus) error {
	m, err := New(ctx, c, bus)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// Close cancels the event subscription.
func (m Model) Close() {
	if m.sub != nil {
		m.sub.Cancel()
	}
}

// Text returns the editor contents.
func (m Model) Text() string {
	return m.editor.Value()
}

// Init starts the cursor blink and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForEvent())
}

func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{event: e}
	}
}

// Update handles key presses, resizes and coordinator events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if cmd, ok := m.bound(msg); ok {
			return m, cmd
		}

	case keyResultMsg:
		m.syncText(msg.result.Text)
		m.state = m.coord.State()
		if msg.err != nil && m.events == nil {
			m.seq++
			m.notice = &notice{seq: m.seq, level: event.LevelError, title: msg.err.Error()}
		}
		return m, nil

	case eventMsg:
		cmd := m.applyEvent(msg.event)
		return m, tea.Batch(cmd, m.waitForEvent())

	case clearNoticeMsg:
		if m.notice != nil && m.notice.seq == msg.seq {
			m.notice = nil
		}
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.coord.Edit(after)
		m.state = m.coord.State()
	}
	return m, cmd
}

// bound returns a command running the keymap action for msg, if any.
// Plain typed characters never trigger actions.
func (m Model) bound(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.Type == tea.KeyRunes && !msg.Alt {
		return nil, false
	}
	spec := msg.String()
	if m.keymap.Resolve(spec) == keymap.ActionNone {
		return nil, false
	}

	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		res, err := coord.HandleKey(ctx, spec)
		return keyResultMsg{result: res, err: err}
	}, true
}

// applyEvent updates the view for a coordinator event.
func (m *Model) applyEvent(e event.Event) tea.Cmd {
	var cmd tea.Cmd
	switch p := e.Payload.(type) {
	case event.TextChanged:
		m.syncText(p.Text)
	case event.Notification:
		m.seq++
		m.notice = &notice{seq: m.seq, level: p.Level, title: p.Title, desc: p.Description}
		seq, d := m.seq, p.Duration
		if d <= 0 {
			d = 3 * time.Second
		}
		cmd = tea.Tick(d, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
	}
	m.state = m.coord.State()
	return cmd
}

// syncText replaces the editor contents when the coordinator changed the
// text programmatically.
func (m *Model) syncText(text string) {
	if m.editor.Value() != text {
		m.editor.SetValue(text)
	}
}

func (m *Model) resize() {
	editorWidth := m.width * 3 / 5
	if editorWidth < 20 {
		editorWidth = m.width
	}
	height := m.height - 3
	if height < 3 {
		height = 3
	}
	m.editor.SetWidth(editorWidth)
	m.editor.SetHeight(height)
}
