// Package poll drives the periodic notes fetch that runs while a session is
// recording.
//
// The Poller owns one repeating timer and at most one request in flight. Like
// the stream connection it never touches shared state itself: ticks and
// fetch results come back to the owner as Event values and are applied by
// Handle on the owner's event loop.
package poll
