// Package session keeps the set of live editing sessions.
//
// Each session is a coordinator.Coordinator keyed by a random UUID. The
// registry closes sessions on request, when they sit idle past the
// configured timeout (see Run and Reap), and all at once on Close.
package session
