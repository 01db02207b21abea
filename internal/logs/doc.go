// Package logs reads the rotated JSON log that classaudio writes next to its
// console output. It backs the "classaudio logs" command: the last N lines,
// optional filtering to warnings with an event type, and follow mode that
// polls for appended lines until the context ends.
package logs
