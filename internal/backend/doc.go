// Package backend is the HTTP client for the transcription backend.
//
// It wraps the control endpoints (start/stop capture), status and health
// probes, the structured notes feed, topic vocabulary generation and question
// answering. Non-2xx responses and transport failures come back as
// *RequestError; IsUnavailable distinguishes a backend that cannot be reached
// from one that answered with an error.
package backend
