// Package session keeps one recording session consistent across the caption
// stream, the notes poller and the persistent cache.
//
// Manager is the owner of all session state. Every input (stream frames,
// transport closes, timer firings, request completions and user commands)
// becomes an event value handed to Dispatch, and events are applied one at a
// time by a single handler. Blocking requests run outside that handler and
// report back through Dispatch, so no handler ever waits on the network.
//
// Startup reconciliation compares the backend's session id with the cached
// one: a new backend incarnation wipes the cached records, and a backend that
// is already recording brings the stream and poller back without user input.
package session
