// Package logging assembles structured slog loggers and formatting helpers used
// across subweave.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so backend code can tag log
// lines with run IDs, batch ordinals, and provider names. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
