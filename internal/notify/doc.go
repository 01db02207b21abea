// Package notify delivers user-facing notices about the live session.
//
// Every stream state transition, reconciliation outcome and failed request
// produces exactly one Notice. Notices go to the terminal (coloured when
// attached to a TTY) and, when an ntfy topic is configured, warnings and
// errors are pushed to the phone with a short de-duplication window.
package notify
