// Package render turns diagram markup into images.
//
// Rendering is delegated to a Kroki-compatible HTTP service
// (https://kroki.io). KrokiRenderer posts the markup as plain text and
// returns the image bytes. A syntax error reported by the service comes
// back as *Error so callers can surface the message and hand it to the AI
// repair flow; every other failure is a transport error.
//
// CachingRenderer wraps a FormatRenderer with a TTL cache and collapses
// concurrent requests for the same markup into one upstream call.
package render
