// Package logging assembles the structured slog loggers used across symsync.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so engine code tags log lines with
// configuration IDs, source, and target paths consistently. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
