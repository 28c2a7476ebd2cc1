package event

import "strings"

// Topic is a hierarchical event name using dot notation.
type Topic string

// Wildcard and separator tokens for topic patterns.
const (
	WildcardSingle = "*"
	WildcardMulti  = "**"
	Separator      = "."
)

// Topics published by the editor.
const (
	TopicHistoryCommitted Topic = "history.committed"
	TopicHistoryUndo      Topic = "history.undo"
	TopicHistoryRedo      Topic = "history.redo"
	TopicHistoryReset     Topic = "history.reset"

	TopicTextChanged Topic = "editor.text"

	TopicRenderStarted   Topic = "render.started"
	TopicRenderSucceeded Topic = "render.succeeded"
	TopicRenderFailed    Topic = "render.failed"

	TopicRepairStarted   Topic = "repair.started"
	TopicRepairSucceeded Topic = "repair.succeeded"
	TopicRepairFailed    Topic = "repair.failed"

	TopicNotification Topic = "notification"

	TopicConfigReloaded Topic = "config.reloaded"
)

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsValid reports whether the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// IsWildcard returns true if the topic contains wildcard segments.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// Matches returns true if t matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	return match(t.Segments(), pattern.Segments())
}

func match(topic, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == WildcardMulti {
			for i := 0; i <= len(topic); i++ {
				if match(topic[i:], pattern[1:]) {
					return true
				}
			}
			return false
		}
		if len(topic) == 0 {
			return false
		}
		if head != WildcardSingle && head != topic[0] {
			return false
		}
		topic, pattern = topic[1:], pattern[1:]
	}
	return len(topic) == 0
}
