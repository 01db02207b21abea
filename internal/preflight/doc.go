// Package preflight provides readiness checks for the backend, the cache
// store and the data directory that classaudio depends on.
//
// The "classaudio doctor" command runs RunAll and prints every result. The
// interactive session does not run these checks; it falls back to an
// in-memory store when the configured one cannot be opened.
package preflight
