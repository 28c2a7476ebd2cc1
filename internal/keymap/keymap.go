package keymap

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Action is an editor command a chord can trigger.
type Action string

// Actions understood by the editor.
const (
	ActionNone   Action = ""
	ActionUndo   Action = "undo"
	ActionRedo   Action = "redo"
	ActionRepair Action = "repair"
	ActionCommit Action = "commit"
)

// ErrUnknownAction indicates a binding names an action the editor lacks.
var ErrUnknownAction = errors.New("unknown action")

// ParseAction validates an action name. "none" and "" yield ActionNone.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionUndo, ActionRedo, ActionRepair, ActionCommit:
		return a, nil
	case ActionNone, "none":
		return ActionNone, nil
	}
	return ActionNone, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Binding pairs a chord with its action.
type Binding struct {
	Chord  Chord
	Action Action
}

// Keymap resolves chords to actions. It is safe for concurrent use.
type Keymap struct {
	mu       sync.RWMutex
	bindings map[Chord]Action
}

// New creates an empty keymap.
func New() *Keymap {
	return &Keymap{bindings: make(map[Chord]Action)}
}

// Default returns the standard undo/redo/repair/commit bindings.
func Default() *Keymap {
	km := New()
	for _, mod := range []string{"ctrl", "meta"} {
		km.bind(MustParse(mod+"+z"), ActionUndo)
		km.bind(MustParse(mod+"+y"), ActionRedo)
		km.bind(MustParse(mod+"+shift+z"), ActionRedo)
		km.bind(MustParse(mod+"+r"), ActionRepair)
		km.bind(MustParse(mod+"+s"), ActionCommit)
	}
	return km
}

// FromConfig returns the default keymap with overrides applied.
// Each key is a chord spec and each value an action name; "none" removes
// the binding.
func FromConfig(overrides map[string]string) (*Keymap, error) {
	km := Default()

	// Sorted for deterministic error reporting.
	specs := make([]string, 0, len(overrides))
	for spec := range overrides {
		specs = append(specs, spec)
	}
	sort.Strings(specs)

	for _, spec := range specs {
		action, err := ParseAction(overrides[spec])
		if err != nil {
			return nil, fmt.Errorf("keymap %q: %w", spec, err)
		}
		if action == ActionNone {
			if err := km.Unbind(spec); err != nil {
				return nil, fmt.Errorf("keymap %q: %w", spec, err)
			}
			continue
		}
		if err := km.Bind(spec, action); err != nil {
			return nil, fmt.Errorf("keymap %q: %w", spec, err)
		}
	}
	return km, nil
}

// Bind maps the chord in spec to action, replacing any existing binding.
func (k *Keymap) Bind(spec string, action Action) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	c, err := Parse(spec)
	if err != nil {
		return err
	}
	k.bind(c, action)
	return nil
}

func (k *Keymap) bind(c Chord, action Action) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.bindings[c] = action
}

// Replace swaps in other's bindings, leaving other unchanged.
func (k *Keymap) Replace(other *Keymap) {
	other.mu.RLock()
	bindings := make(map[Chord]Action, len(other.bindings))
	for c, a := range other.bindings {
		bindings[c] = a
	}
	other.mu.RUnlock()

	k.mu.Lock()
	k.bindings = bindings
	k.mu.Unlock()
}

// Unbind removes the binding for the chord in spec.
func (k *Keymap) Unbind(spec string) error {
	c, err := Parse(spec)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.bindings, c)
	return nil
}

// Lookup returns the action bound to c.
func (k *Keymap) Lookup(c Chord) (Action, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	a, ok := k.bindings[c]
	return a, ok
}

// Resolve parses spec and returns its action. Unparseable or unbound
// chords resolve to ActionNone.
func (k *Keymap) Resolve(spec string) Action {
	c, err := Parse(spec)
	if err != nil {
		return ActionNone
	}
	a, _ := k.Lookup(c)
	return a
}

// Bindings returns all bindings ordered by chord.
func (k *Keymap) Bindings() []Binding {
	k.mu.RLock()
	defer k.mu.RUnlock()

	result := make([]Binding, 0, len(k.bindings))
	for c, a := range k.bindings {
		result = append(result, Binding{Chord: c, Action: a})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Chord.String() < result[j].Chord.String()
	})
	return result
}

// ChordsFor returns the chords bound to action, ordered.
func (k *Keymap) ChordsFor(action Action) []Chord {
	var chords []Chord
	for _, b := range k.Bindings() {
		if b.Action == action {
			chords = append(chords, b.Chord)
		}
	}
	return chords
}
