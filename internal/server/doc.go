// Package server exposes editing sessions and saved diagrams over HTTP.
//
// Routes are mounted on a chi router:
//
//	/api/sessions/...   live editing sessions (edit, undo, redo, repair, export, SSE)
//	/api/diagrams/...   saved diagrams and their versions
//	/healthz            liveness
//	/metrics            Prometheus metrics
//
// Errors are returned as JSON objects of the form {"error": "..."}.
package server
