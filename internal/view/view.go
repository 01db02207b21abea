// Package view renders live session state for the terminal.
package view

import (
	"classaudio/internal/record"
)

// View receives display updates from the session manager. Calls arrive on the
// manager's event loop, one at a time.
type View interface {
	Partial(text string)
	Caption(caption record.Caption)
	QA(item record.QA)
	Notes(notes record.Notes)
	Reset()
}

// Nop discards every update.
type Nop struct{}

func (Nop) Partial(string) {}
func (Nop) Caption(record.Caption) {}
func (Nop) QA(record.QA) {}
func (Nop) Notes(record.Notes) {}
func (Nop) Reset() {}
