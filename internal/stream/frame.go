package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"classaudio/internal/record"
)

// FrameType is the "type" field of an inbound frame.
type FrameType string

const (
	FramePartial  FrameType = "partial"
	FrameAccurate FrameType = "accurate"
	FramePing     FrameType = "ping"
)

// Frame is one decoded inbound message.
type Frame struct {
	Type         FrameType `json:"type"`
	Text         string    `json:"text"`
	Timestamp    string    `json:"timestamp"`
	NoSpeechProb float64   `json:"no_speech_prob"`
	AvgLogprob   float64   `json:"avg_logprob"`
}

// Caption converts an accurate frame into a caption record.
func (f Frame) Caption() record.Caption {
	return record.Caption{
		Timestamp:    f.Timestamp,
		Text:         f.Text,
		NoSpeechProb: f.NoSpeechProb,
		AvgLogprob:   f.AvgLogprob,
	}
}

// Known reports whether the frame type is one the client understands.
func (f Frame) Known() bool {
	switch f.Type {
	case FramePartial, FrameAccurate, FramePing:
		return true
	}
	return false
}

// ParseError reports an inbound frame that could not be decoded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissingType = errors.New("missing type")

// DecodeFrame parses one frame. Unknown types decode successfully; callers
// check Known.
func DecodeFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, &ParseError{Raw: clip(data), Err: err}
	}
	frame.Type = FrameType(strings.TrimSpace(string(frame.Type)))
	if frame.Type == "" {
		return Frame{}, &ParseError{Raw: clip(data), Err: errMissingType}
	}
	return frame, nil
}

func clip(data []byte) string {
	const limit = 120
	if len(data) > limit {
		return string(data[:limit]) + "…"
	}
	return string(data)
}
