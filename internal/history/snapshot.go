package history

import "time"

// Labels used for snapshots created by the history itself.
const (
	LabelInitial = "Initial state"
	LabelCleared = "Cleared"
)

// Snapshot is one recorded state of the edited text.
// Snapshots are values; the history never mutates one after creation.
type Snapshot struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label,omitempty"`
}

// State is a read-only view of the history log.
type State struct {
	Entries    []Snapshot `json:"entries"`
	Cursor     int        `json:"cursor"`
	CanUndo    bool       `json:"can_undo"`
	CanRedo    bool       `json:"can_redo"`
	MaxEntries int        `json:"max_entries"`
}

// Current returns the snapshot under the cursor.
func (s State) Current() Snapshot {
	if s.Cursor < 0 || s.Cursor >= len(s.Entries) {
		return Snapshot{}
	}
	return s.Entries[s.Cursor]
}
