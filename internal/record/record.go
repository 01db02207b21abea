package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ClockLayout is the HH:MM:SS layout used for caption and QA timestamps.
const ClockLayout = "15:04:05"

// Caption is one finalized transcript segment. Captions are immutable once
// created.
type Caption struct {
	Timestamp    string  `json:"timestamp"`
	Text         string  `json:"text"`
	NoSpeechProb float64 `json:"no_speech_prob,omitempty"`
	AvgLogprob   float64 `json:"avg_logprob,omitempty"`
}

// QA is one question/answer exchange. A QA starts Loading and is resolved
// exactly once, either with an answer or as errored.
type QA struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Loading   bool   `json:"loading"`
	Errored   bool   `json:"errored,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Pending reports whether the exchange is still waiting for an answer.
func (q QA) Pending() bool { return q.Loading }

// NoteBatch is one structured summarization unit.
type NoteBatch struct {
	Coursework []string `json:"coursework"`
	Knowledge  []string `json:"knowledge"`
	Question   []string `json:"question"`
}

// Empty reports whether the batch has no items in any list.
func (b NoteBatch) Empty() bool {
	return len(b.Coursework) == 0 && len(b.Knowledge) == 0 && len(b.Question) == 0
}

// Notes is the ordered notes snapshot. It is replaced as a whole, never merged.
type Notes []NoteBatch

// Serialize renders the canonical JSON form used for change detection and
// storage. Nil list fields serialize as empty arrays so a backend omitting a
// list and one sending [] compare equal.
func (n Notes) Serialize() ([]byte, error) {
	normalized := make(Notes, len(n))
	for i, batch := range n {
		normalized[i] = NoteBatch{
			Coursework: nonNil(batch.Coursework),
			Knowledge:  nonNil(batch.Knowledge),
			Question:   nonNil(batch.Question),
		}
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("serialize notes: %w", err)
	}
	return data, nil
}

// Equal compares two snapshots by serialized form.
func (n Notes) Equal(other Notes) bool {
	a, errA := n.Serialize()
	b, errB := other.Serialize()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Clone returns a deep copy.
func (n Notes) Clone() Notes {
	if n == nil {
		return nil
	}
	out := make(Notes, len(n))
	for i, batch := range n {
		out[i] = NoteBatch{
			Coursework: append([]string(nil), batch.Coursework...),
			Knowledge:  append([]string(nil), batch.Knowledge...),
			Question:   append([]string(nil), batch.Question...),
		}
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Clock formats t as an HH:MM:SS timestamp in local time.
func Clock(t time.Time) string {
	return t.Local().Format(ClockLayout)
}
