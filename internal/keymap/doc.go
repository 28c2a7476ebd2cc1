// Package keymap maps keyboard chords to editor actions.
//
// Chords are written in either modifier style or bracket style:
//
//	Ctrl+Z   ctrl+shift+z   Cmd+Y   <C-z>   <C-S-z>   <D-y>
//
// Cmd, Command, Super and Win are aliases for Meta. Letters are
// case-insensitive when modifiers are present, so "Ctrl+Z" and "ctrl+z"
// are the same chord. A lone upper-case letter implies Shift.
//
// The default keymap binds Ctrl or Meta with:
//
//	z        undo
//	y        redo
//	shift+z  redo
//	r        repair
//	s        commit
package keymap
