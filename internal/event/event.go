package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is one published occurrence. Events are immutable once created.
type Event struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Topic is the hierarchical event type.
	Topic Topic `json:"topic"`

	// Source identifies the publisher, usually a session ID.
	Source string `json:"source,omitempty"`

	// Time is when the event was created.
	Time time.Time `json:"time"`

	// Payload carries topic-specific data.
	Payload any `json:"payload,omitempty"`
}

// New creates an event with a fresh ID and the current time.
func New(topic Topic, source string, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Topic:   topic,
		Source:  source,
		Time:    time.Now(),
		Payload: payload,
	}
}

// Level classifies a user-facing notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a short, non-fatal message for the user.
type Notification struct {
	Level       Level         `json:"level"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// HistoryChanged describes the history log after a commit, undo, redo or reset.
type HistoryChanged struct {
	Cursor  int    `json:"cursor"`
	Len     int    `json:"len"`
	CanUndo bool   `json:"can_undo"`
	CanRedo bool   `json:"can_redo"`
	Label   string `json:"label,omitempty"`
	Content string `json:"content"`
}

// TextChanged carries the editor text after a programmatic change.
type TextChanged struct {
	Text string `json:"text"`
}

// RenderResult describes a completed render.
type RenderResult struct {
	Seq      uint64        `json:"seq"`
	Format   string        `json:"format,omitempty"`
	Size     int           `json:"size,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RepairResult describes a completed AI repair attempt.
type RepairResult struct {
	Seq         uint64 `json:"seq"`
	FixedText   string `json:"fixed_text,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Error       string `json:"error,omitempty"`
}
