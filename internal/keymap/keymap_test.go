package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Chord
	}{
		{"z", Chord{Key: "z"}},
		{"Z", Chord{Mods: ModShift, Key: "z"}},
		{"Ctrl+Z", Chord{Mods: ModCtrl, Key: "z"}},
		{"ctrl+z", Chord{Mods: ModCtrl, Key: "z"}},
		{"ctrl+shift+z", Chord{Mods: ModCtrl | ModShift, Key: "z"}},
		{"Shift+Ctrl+Z", Chord{Mods: ModCtrl | ModShift, Key: "z"}},
		{"Cmd+Y", Chord{Mods: ModMeta, Key: "y"}},
		{"meta+y", Chord{Mods: ModMeta, Key: "y"}},
		{"<C-z>", Chord{Mods: ModCtrl, Key: "z"}},
		{"<C-S-z>", Chord{Mods: ModCtrl | ModShift, Key: "z"}},
		{"<D-y>", Chord{Mods: ModMeta, Key: "y"}},
		{"Alt+Enter", Chord{Mods: ModAlt, Key: "enter"}},
		{"<Esc>", Chord{Key: "esc"}},
		{"ctrl++", Chord{Mods: ModCtrl, Key: "+"}},
		{"+", Chord{Key: "+"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmptySpec)

	for _, spec := range []string{"hyper+z", "ctrl+", "ctrl+zz", "<X-z>", "banana"} {
		_, err := Parse(spec)
		assert.ErrorIs(t, err, ErrInvalidSpec, spec)
	}
}

func TestChord_String(t *testing.T) {
	assert.Equal(t, "ctrl+shift+z", MustParse("<C-S-z>").String())
	assert.Equal(t, "meta+y", MustParse("Cmd+Y").String())
	assert.Equal(t, "ctrl+alt+meta+shift+k", MustParse("shift+meta+alt+ctrl+k").String())
}

func TestDefault(t *testing.T) {
	km := Default()

	tests := []struct {
		spec string
		want Action
	}{
		{"Ctrl+Z", ActionUndo},
		{"Cmd+Z", ActionUndo},
		{"Ctrl+Y", ActionRedo},
		{"Cmd+Y", ActionRedo},
		{"Ctrl+Shift+Z", ActionRedo},
		{"Cmd+Shift+Z", ActionRedo},
		{"ctrl+r", ActionRepair},
		{"ctrl+s", ActionCommit},
		{"z", ActionNone},
		{"alt+z", ActionNone},
		{"not a chord", ActionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, km.Resolve(tt.spec), tt.spec)
	}
}

func TestFromConfig(t *testing.T) {
	km, err := FromConfig(map[string]string{
		"ctrl+u":  "undo",
		"ctrl+s":  "none",
		"<C-S-r>": "redo",
	})
	require.NoError(t, err)

	assert.Equal(t, ActionUndo, km.Resolve("ctrl+u"))
	assert.Equal(t, ActionUndo, km.Resolve("ctrl+z"))
	assert.Equal(t, ActionNone, km.Resolve("ctrl+s"))
	assert.Equal(t, ActionRedo, km.Resolve("ctrl+shift+r"))

	_, err = FromConfig(map[string]string{"ctrl+q": "quit"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = FromConfig(map[string]string{"hyper+q": "undo"})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestBindings(t *testing.T) {
	km := New()
	require.NoError(t, km.Bind("ctrl+b", ActionRepair))
	require.NoError(t, km.Bind("ctrl+a", ActionUndo))

	got := km.Bindings()
	require.Len(t, got, 2)
	assert.Equal(t, "ctrl+a", got[0].Chord.String())
	assert.Equal(t, ActionUndo, got[0].Action)

	assert.Equal(t, []Chord{MustParse("ctrl+b")}, km.ChordsFor(ActionRepair))
	assert.Error(t, km.Bind("ctrl+c", Action("explode")))

	require.NoError(t, km.Unbind("ctrl+a"))
	_, ok := km.Lookup(MustParse("ctrl+a"))
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	km := Default()
	other := New()
	require.NoError(t, other.Bind("alt+u", ActionUndo))

	km.Replace(other)
	assert.Equal(t, ActionNone, km.Resolve("ctrl+z"))
	assert.Equal(t, ActionUndo, km.Resolve("alt+u"))

	require.NoError(t, other.Bind("alt+r", ActionRedo))
	assert.Equal(t, ActionNone, km.Resolve("alt+r"), "later changes to other are not shared")
}
