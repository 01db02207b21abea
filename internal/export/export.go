// Package export renders a notes snapshot as a markdown document.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"classaudio/internal/record"
)

// ErrNothingToExport is returned for an empty snapshot.
var ErrNothingToExport = errors.New("no notes to export")

// Document describes what to render.
type Document struct {
	Notes      record.Notes
	Topic      string
	ExportedAt time.Time
}

// Markdown renders the document. Batches appear in batch order.
func Markdown(doc Document) (string, error) {
	if len(doc.Notes) == 0 {
		return "", ErrNothingToExport
	}

	var b strings.Builder
	title := "# ClassAudio Notes"
	if topic := strings.TrimSpace(doc.Topic); topic != "" {
		title += ": " + cases.Title(language.Und).String(topic)
	}
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "**Exported**: %s\n", doc.ExportedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Batches**: %d\n\n", len(doc.Notes))
	b.WriteString("---\n")

	for i, batch := range doc.Notes {
		fmt.Fprintf(&b, "\n## Batch %d\n", i+1)
		writeList(&b, "Coursework", batch.Coursework)
		writeList(&b, "Knowledge", batch.Knowledge)
		writeList(&b, "Open Questions", batch.Question)
		b.WriteString("\n---\n")
	}
	return b.String(), nil
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", heading)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// FileName returns the default export file name for t.
func FileName(t time.Time) string {
	return "classaudio-notes-" + t.Format("20060102-150405") + ".md"
}
