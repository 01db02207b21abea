// Package stream owns the live caption channel and its reconnect policy.
//
// Connection is a state machine (Idle, Connecting, Open, Reconnecting,
// Closed) driven by events. It never blocks: dialing runs through an injected
// runner and every completion, inbound frame, transport close and retry timer
// comes back as an Event that the owner feeds into Handle on its single event
// loop. Events carry the generation of the transport they belong to so late
// events from a torn-down transport are ignored.
//
// Losing the transport while recording schedules up to MaxAttempts retries
// with exponential backoff (1s, 2s, 4s, 8s, capped at 10s). An explicit Close
// never reconnects. Each state change emits exactly one notice.
package stream
