package event

import "testing"

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"render.failed", "render.failed", true},
		{"render.failed", "render.*", true},
		{"render.failed", "*.failed", true},
		{"render.failed", "history.*", false},
		{"render.failed", "render", false},
		{"render", "render.*", false},
		{"render.failed", "**", true},
		{"render.failed", "render.**", true},
		{"render", "render.**", true},
		{"a.b.c.d", "a.**.d", true},
		{"a.b.c.d", "a.*.d", false},
		{"notification", "*", true},
		{"history.undo", "*", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic)+"~"+string(tt.pattern), func(t *testing.T) {
			if got := tt.topic.Matches(tt.pattern); got != tt.want {
				t.Errorf("%q.Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestTopicIsValid(t *testing.T) {
	tests := []struct {
		topic Topic
		want  bool
	}{
		{"", false},
		{"render", true},
		{"render.failed", true},
		{".render", false},
		{"render.", false},
		{"render..failed", false},
	}

	for _, tt := range tests {
		if got := tt.topic.IsValid(); got != tt.want {
			t.Errorf("%q.IsValid() = %v, want %v", tt.topic, got, tt.want)
		}
	}
}
