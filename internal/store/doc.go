// Package store persists saved diagrams and their version history.
//
// A Diagram is a titled piece of markup owned by a user; public diagrams
// are visible to everyone. Each save can append a Version so earlier
// markup can be restored.
//
// Three backends implement Store:
//
//   - memory: process-local maps, for tests and the default server mode
//   - sqlite: a single database file (modernc.org/sqlite, no cgo)
//   - redis:  JSON documents with a sorted index (go-redis)
//
// Open selects a backend from Config.Driver.
package store
