package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries is the number of snapshots retained when no limit is set.
const DefaultMaxEntries = 50

// Option configures a History.
type Option func(*History)

// WithMaxEntries sets the maximum number of retained snapshots.
// Values <= 0 select DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxEntries = n
		}
	}
}

// WithClock sets the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		if now != nil {
			h.now = now
		}
	}
}

// WithIDGenerator sets the function producing snapshot IDs.
func WithIDGenerator(newID func() string) Option {
	return func(h *History) {
		if newID != nil {
			h.newID = newID
		}
	}
}

// History manages the undo/redo log for one editing session.
type History struct {
	mu sync.Mutex

	entries []Snapshot
	cursor  int

	// lastCommitted is the content most recently committed or navigated to.
	// It is tracked separately from the cursor so duplicate commits are
	// detected even right after undo or redo.
	lastCommitted string

	// Configuration
	maxEntries int
	now        func() time.Time
	newID      func() string
}

// New creates a history seeded with one snapshot holding seed.
func New(seed string, opts ...Option) *History {
	h := &History{
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.entries = []Snapshot{h.snapshot(seed, LabelInitial)}
	h.lastCommitted = seed
	return h
}

func (h *History) snapshot(content, label string) Snapshot {
	return Snapshot{
		ID:        h.newID(),
		Content:   content,
		CreatedAt: h.now(),
		Label:     label,
	}
}

// Commit records content as a new snapshot and moves the cursor to it.
//
// Snapshots after the cursor are discarded first. When the log exceeds the
// configured maximum, the oldest snapshots are evicted. Commit returns false
// without changing anything if content equals the last committed content.
func (h *History) Commit(content, label string) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if content == h.lastCommitted {
		return Snapshot{}, false
	}

	snap := h.snapshot(content, label)

	// Truncate the redo branch. The slice is copied so snapshots handed out
	// by Entries never alias the backing array we append to.
	kept := make([]Snapshot, h.cursor+1, h.cursor+2)
	copy(kept, h.entries[:h.cursor+1])
	kept = append(kept, snap)

	if excess := len(kept) - h.maxEntries; excess > 0 {
		kept = kept[excess:]
	}

	h.entries = kept
	h.cursor = len(kept) - 1
	h.lastCommitted = content
	return snap, true
}

// Undo moves the cursor back one snapshot and returns its content.
// It returns false at the oldest snapshot.
func (h *History) Undo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor == 0 {
		return "", false
	}

	h.cursor--
	content := h.entries[h.cursor].Content
	h.lastCommitted = content
	return content, true
}

// Redo moves the cursor forward one snapshot and returns its content.
// It returns false at the newest snapshot.
func (h *History) Redo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= len(h.entries)-1 {
		return "", false
	}

	h.cursor++
	content := h.entries[h.cursor].Content
	h.lastCommitted = content
	return content, true
}

// Reset collapses the log to the snapshot under the cursor.
func (h *History) Reset() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.entries[h.cursor]
	h.entries = []Snapshot{current}
	h.cursor = 0
	h.lastCommitted = current.Content
	return current
}

// ResetTo collapses the log to a single new snapshot holding seed.
func (h *History) ResetTo(seed string) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := h.snapshot(seed, LabelCleared)
	h.entries = []Snapshot{snap}
	h.cursor = 0
	h.lastCommitted = seed
	return snap
}

// Current returns the snapshot under the cursor.
func (h *History) Current() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

// Cursor returns the index of the active snapshot.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Len returns the number of snapshots in the log.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Entries returns a copy of the log, oldest first.
func (h *History) Entries() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]Snapshot, len(h.entries))
	copy(result, h.entries)
	return result
}

// MaxEntries returns the maximum number of retained snapshots.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}

// State returns a consistent view of the whole log.
func (h *History) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]Snapshot, len(h.entries))
	copy(entries, h.entries)
	return State{
		Entries:    entries,
		Cursor:     h.cursor,
		CanUndo:    h.cursor > 0,
		CanRedo:    h.cursor < len(h.entries)-1,
		MaxEntries: h.maxEntries,
	}
}
