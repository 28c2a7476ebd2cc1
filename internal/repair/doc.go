// Package repair asks a language model to fix malformed diagram markup.
//
// A Repairer receives the current markup and, when available, the error
// the renderer reported for it. GeminiRepairer sends an instruction prompt
// to the Gemini API and extracts the corrected markup from the reply.
//
// Failures are classified with Classify so callers can show a short,
// actionable message (bad key, quota, network) instead of a raw API error.
package repair
