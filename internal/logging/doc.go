// Package logging assembles structured slog loggers and formatting helpers used
// across the classaudio client.
//
// It owns the console and JSON handlers, routes file outputs through a
// rotating writer, and exposes attribute helpers so components tag their
// lines with the same keys (component, event_type, session_id, conn_state).
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
