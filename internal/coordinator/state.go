package coordinator

import "github.com/dshills/mermaidflow/internal/history"

// State is a point-in-time view of a session.
type State struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	History       history.State `json:"history"`
	Render        RenderState   `json:"render"`
	Repairing     bool          `json:"repairing"`
	PendingCommit bool          `json:"pending_commit"`
}

// State returns a snapshot of the session.
func (c *Coordinator) State() State {
	c.mu.Lock()
	st := State{
		ID:        c.id,
		Text:      c.text,
		Render:    c.renderStateLocked(),
		Repairing: c.repairing,
	}
	c.mu.Unlock()

	st.History = c.history.State()
	st.PendingCommit = c.commits.Pending()
	return st
}
