// Package history provides the undo/redo log for the diagram editor.
//
// The log is a linear timeline of immutable snapshots with a cursor that
// marks the active entry. There is no redo tree: committing while the cursor
// sits behind the tail discards everything after it.
//
// # Snapshots
//
// A Snapshot records one state of the markup text together with an ID, a
// creation time and an optional label such as "Manual edit" or
// "AI fix applied".
//
// # History
//
//	h := history.New("graph TD\nA-->B") // seeded, at most 50 entries
//
//	h.Commit("graph TD\nA-->B-->C", "edit")
//	text, ok := h.Undo() // "graph TD\nA-->B", true
//	text, ok = h.Redo()  // "graph TD\nA-->B-->C", true
//
// Undo and Redo report a boundary with ok == false instead of an error.
// Commit ignores content identical to the last committed (or navigated to)
// text, so repeated debounced fires of unchanged text never create entries.
//
// # Capacity
//
// The log holds at most MaxEntries snapshots. Older entries are evicted
// silently from the head; the newest commit always stays under the cursor.
package history
