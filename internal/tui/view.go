package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/mermaidflow/internal/keymap"
)

// maxHistoryRows caps the history list in the side panel.
const maxHistoryRows = 12

// View renders the editor, side panel and status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	panelWidth := m.width - m.editor.Width() - 4
	if panelWidth < 24 {
		panelWidth = 24
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.editor.View(),
		stylePanel.Width(panelWidth).Render(m.panel()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m Model) panel() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Preview"))
	b.WriteString("\n")
	b.WriteString(m.renderLine())
	b.WriteString("\n\n")

	h := m.state.History
	b.WriteString(styleTitle.Render(fmt.Sprintf("History %d/%d", h.Cursor+1, len(h.Entries))))
	b.WriteString("\n")

	start := 0
	if len(h.Entries) > maxHistoryRows {
		start = len(h.Entries) - maxHistoryRows
		if h.Cursor < start {
			start = h.Cursor
		}
	}
	end := start + maxHistoryRows
	if end > len(h.Entries) {
		end = len(h.Entries)
	}
	for i := start; i < end; i++ {
		snap := h.Entries[i]
		line := fmt.Sprintf("  %s %s", snap.CreatedAt.Format("15:04:05"), snap.Label)
		if i == h.Cursor {
			line = styleCursor.Render("> " + line[2:])
		} else if i > h.Cursor {
			line = styleMuted.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.notice != nil {
		b.WriteString("\n")
		b.WriteString(noticeStyle(string(m.notice.level)).Render(m.notice.title))
		if m.notice.desc != "" {
			b.WriteString("\n")
			b.WriteString(styleMuted.Render(m.notice.desc))
		}
	}
	return b.String()
}

func (m Model) renderLine() string {
	r := m.state.Render
	switch {
	case m.state.Repairing:
		return styleMuted.Render("AI fix in progress...")
	case r.InFlight:
		return styleMuted.Render("rendering...")
	case r.SyntaxError != "":
		return styleError.Render("syntax error: " + r.SyntaxError)
	case r.Error != "":
		return styleError.Render("render failed: " + r.Error)
	case r.HasArtifact:
		return styleOK.Render("rendered")
	}
	return styleMuted.Render("not rendered")
}

func (m Model) statusBar() string {
	help := []string{
		m.hint(keymap.ActionUndo, "undo"),
		m.hint(keymap.ActionRedo, "redo"),
		m.hint(keymap.ActionRepair, "ai fix"),
		m.hint(keymap.ActionCommit, "snapshot"),
		"ctrl+c quit",
	}
	var parts []string
	for _, h := range help {
		if h != "" {
			parts = append(parts, h)
		}
	}
	line := " " + strings.Join(parts, " | ")
	if m.state.PendingCommit {
		line += " | unsaved"
	}
	return styleStatusBar.Width(m.width).Render(line)
}

// hint shows the first chord bound to action.
func (m Model) hint(action keymap.Action, label string) string {
	chords := m.keymap.ChordsFor(action)
	if len(chords) == 0 {
		return ""
	}
	return chords[0].String() + " " + label
}
