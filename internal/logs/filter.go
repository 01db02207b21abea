package logs

import (
	"encoding/json"
	"strings"
)

// Entry is the subset of a JSON log line used for filtering and display.
type Entry struct {
	Time      string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Component string `json:"component"`
	EventType string `json:"event_type"`
	Impact    string `json:"impact"`
	ErrorHint string `json:"error_hint"`
}

// Parse decodes one log line. Lines that are not JSON objects report false.
func Parse(line string) (Entry, bool) {
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return Entry{}, false
	}
	e.Level = strings.ToLower(e.Level)
	return e, true
}

// Filter selects log lines.
type Filter struct {
	// Component keeps only entries from this component.
	Component string
	// Events keeps only entries tagged with an event type, which are the
	// warnings and errors that name an impact and a next step.
	Events bool
}

// Match reports whether line passes f. Unparseable lines pass only an empty
// filter.
func (f Filter) Match(line string) bool {
	if f.Component == "" && !f.Events {
		return true
	}
	e, ok := Parse(line)
	if !ok {
		return false
	}
	if f.Component != "" && !strings.EqualFold(e.Component, f.Component) {
		return false
	}
	if f.Events && e.EventType == "" {
		return false
	}
	return true
}

// Format renders an entry on one line. Raw is returned unchanged when it is
// not a JSON log line.
func Format(raw string) string {
	e, ok := Parse(raw)
	if !ok || e.Message == "" {
		return raw
	}
	var b strings.Builder
	if len(e.Time) >= 19 {
		b.WriteString(strings.Replace(e.Time[:19], "T", " ", 1))
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToUpper(e.Level))
	if e.Component != "" {
		b.WriteString(" [" + e.Component + "]")
	}
	b.WriteString(" " + e.Message)
	if e.EventType != "" {
		b.WriteString(" (" + e.EventType + ")")
	}
	if e.Impact != "" {
		b.WriteString("\n\timpact: " + e.Impact)
	}
	if e.ErrorHint != "" {
		b.WriteString("\n\thint: " + e.ErrorHint)
	}
	return b.String()
}
