// Package coordinator drives one editing session.
//
// A Coordinator owns the editor text and its history. Raw edits arrive at
// keystroke frequency through Edit; two debouncers coalesce them, one
// committing a history snapshot after the typing settles (CommitDelay) and
// one re-rendering the diagram sooner (RenderDelay).
//
// Render and repair calls run outside the coordinator lock. Each carries a
// sequence number and its result is applied only if no newer call of the
// same kind was started in the meantime.
//
// State changes are published on an event.Bus:
//
//	history.committed | history.undo | history.redo | history.reset
//	editor.text       (text replaced by undo, redo, reset or repair)
//	render.started    | render.succeeded | render.failed
//	repair.started    | repair.succeeded | repair.failed
//	notification      (short user-facing messages)
//
// Collaborator failures become notifications; they never modify history.
package coordinator
