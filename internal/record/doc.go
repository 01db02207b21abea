// Package record defines the durable session records kept by the client:
// accurate captions, question/answer exchanges and the structured notes
// snapshot produced by the backend summarizer.
//
// Records carry JSON tags matching the backend wire format so the same values
// flow from the stream and HTTP responses into the persistent cache unchanged.
package record
