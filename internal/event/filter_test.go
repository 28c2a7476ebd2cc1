package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters(t *testing.T) {
	undo := New(TopicHistoryUndo, "s1", nil)
	render := New(TopicRenderFailed, "s2", nil)

	tests := []struct {
		name   string
		filter Filter
		undo   bool
		render bool
	}{
		{"all", All(), true, true},
		{"by source", BySource("s1"), true, false},
		{"by sources", BySources("s2", "s3"), false, true},
		{"by topic", ByTopic("history.*"), true, false},
		{"by topic wildcard", ByTopic("**"), true, true},
		{"and", And(BySource("s1"), ByTopic("render.*")), false, false},
		{"or", Or(BySource("s1"), ByTopic("render.*")), true, true},
		{"not", Not(BySource("s1")), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.undo, tt.filter(undo))
			assert.Equal(t, tt.render, tt.filter(render))
		})
	}
}
