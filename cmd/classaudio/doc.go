// Command classaudio is the terminal client for a live lecture transcription
// backend. "classaudio run" follows the live caption stream, polls the
// structured notes and keeps a local cache that survives restarts; the other
// subcommands inspect or export that cache.
package main
