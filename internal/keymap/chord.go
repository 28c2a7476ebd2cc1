package keymap

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Modifier represents keyboard modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta
)

// Has returns true if m contains mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// With returns m with mod added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// modifierFromName returns the modifier for a name, or ModNone.
func modifierFromName(name string) Modifier {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ctrl", "control", "c":
		return ModCtrl
	case "shift", "s":
		return ModShift
	case "alt", "option", "opt", "a", "m":
		return ModAlt
	case "meta", "cmd", "command", "super", "win", "d":
		return ModMeta
	}
	return ModNone
}

// Chord is a key with its modifiers.
// Key is a single lower-case character or a named key such as "enter".
type Chord struct {
	Mods Modifier
	Key  string
}

// String returns the canonical form, e.g. "ctrl+shift+z".
func (c Chord) String() string {
	var b strings.Builder
	if c.Mods.Has(ModCtrl) {
		b.WriteString("ctrl+")
	}
	if c.Mods.Has(ModAlt) {
		b.WriteString("alt+")
	}
	if c.Mods.Has(ModMeta) {
		b.WriteString("meta+")
	}
	if c.Mods.Has(ModShift) {
		b.WriteString("shift+")
	}
	b.WriteString(c.Key)
	return b.String()
}

var namedKeys = map[string]string{
	"enter": "enter", "return": "enter", "cr": "enter",
	"esc": "esc", "escape": "esc",
	"tab":       "tab",
	"backspace": "backspace", "bs": "backspace",
	"delete": "delete", "del": "delete",
	"space": " ",
	"up":    "up", "down": "down", "left": "left", "right": "right",
	"home": "home", "end": "end",
	"pageup": "pgup", "pgup": "pgup",
	"pagedown": "pgdown", "pgdn": "pgdown", "pgdown": "pgdown",
}

// Parse parses a key specification into a Chord.
//
// Supported formats:
//   - Single character: "z", "Z" (Shift implied)
//   - With modifiers: "Ctrl+Z", "ctrl+shift+z", "Cmd+Y"
//   - Bracket style: "<C-z>", "<C-S-z>", "<D-y>"
//   - Named keys: "Enter", "Esc", "Ctrl+Space"
func Parse(spec string) (Chord, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Chord{}, ErrEmptySpec
	}

	if strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") && len(spec) > 2 {
		return parseParts(strings.Split(spec[1:len(spec)-1], "-"), spec)
	}
	if len(spec) > 1 && strings.Contains(spec, "+") {
		parts := strings.Split(spec, "+")
		// "ctrl++" binds the plus key.
		if strings.HasSuffix(spec, "++") {
			parts = append(parts[:len(parts)-2], "+")
		}
		return parseParts(parts, spec)
	}
	return parseParts([]string{spec}, spec)
}

// MustParse is like Parse but panics on error.
func MustParse(spec string) Chord {
	c, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return c
}

func parseParts(parts []string, spec string) (Chord, error) {
	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		mod := modifierFromName(p)
		if mod == ModNone {
			return Chord{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, p, spec)
		}
		mods = mods.With(mod)
	}

	keyPart := strings.TrimSpace(parts[len(parts)-1])
	if keyPart == "" {
		return Chord{}, fmt.Errorf("%w: missing key in %q", ErrInvalidSpec, spec)
	}

	if name, ok := namedKeys[strings.ToLower(keyPart)]; ok {
		return Chord{Mods: mods, Key: name}, nil
	}

	if utf8.RuneCountInString(keyPart) != 1 {
		return Chord{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
	}

	r, _ := utf8.DecodeRuneInString(keyPart)
	if unicode.IsUpper(r) {
		// Upper-case letters carry Shift only when written alone.
		if mods == ModNone {
			mods = ModShift
		}
		r = unicode.ToLower(r)
	}
	return Chord{Mods: mods, Key: string(r)}, nil
}
