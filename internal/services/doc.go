// Package services defines shared utilities consumed by the translation
// backends and their provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, batch ordinals, and
//     provider names for logging.
//   - Structured error markers plus the Wrap helper that separate transport
//     failures (retry) from terminal failures (stop the run).
//
// Provider clients live in subpackages (googletranslate, gemini, openai,
// anthropic, llm) and report failures through these markers.
package services
