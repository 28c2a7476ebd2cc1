package event

// Filter reports whether an event should be delivered.
type Filter func(e Event) bool

// All passes every event.
func All() Filter {
	return func(Event) bool { return true }
}

// BySource passes events published by source.
func BySource(source string) Filter {
	return func(e Event) bool { return e.Source == source }
}

// BySources passes events published by any of sources.
func BySources(sources ...string) Filter {
	set := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		set[s] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Source]
		return ok
	}
}

// ByTopic passes events whose topic matches pattern.
func ByTopic(pattern Topic) Filter {
	return func(e Event) bool { return e.Topic.Matches(pattern) }
}

// And passes events that every filter passes.
func And(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// Or passes events that at least one filter passes.
func Or(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// Not inverts f.
func Not(f Filter) Filter {
	return func(e Event) bool { return !f(e) }
}
