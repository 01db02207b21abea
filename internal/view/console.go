package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"classaudio/internal/record"
)

var (
	partialStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	timestampStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))

	questionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8B5CF6")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444"))

	batchStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1).
		Width(76)

	headingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)
)

// Console renders updates as terminal lines. The partial caption occupies the
// current line and is overwritten in place until an accurate caption or any
// other output replaces it.
type Console struct {
	mu          sync.Mutex
	out         io.Writer
	partialOpen bool
}

// NewConsole writes to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Partial(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text = strings.TrimSpace(text)
	fmt.Fprintf(c.out, "\r\033[K%s", partialStyle.Render("… "+text))
	c.partialOpen = text != ""
}

func (c *Console) Caption(caption record.Caption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPartialLocked()
	fmt.Fprintf(c.out, "%s %s\n", timestampStyle.Render("["+caption.Timestamp+"]"), caption.Text)
}

func (c *Console) QA(item record.QA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPartialLocked()
	fmt.Fprintln(c.out, questionStyle.Render("Q: "+item.Question))
	switch {
	case item.Loading:
		fmt.Fprintln(c.out, partialStyle.Render("A: thinking…"))
	case item.Errored:
		fmt.Fprintln(c.out, errorStyle.Render("A: "+item.Answer))
	default:
		fmt.Fprintln(c.out, "A: "+item.Answer)
	}
}

func (c *Console) Notes(notes record.Notes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPartialLocked()
	fmt.Fprint(c.out, RenderNotes(notes))
}

func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partialOpen = false
	fmt.Fprint(c.out, "\r\033[K")
}

func (c *Console) endPartialLocked() {
	if c.partialOpen {
		fmt.Fprint(c.out, "\r\033[K")
		c.partialOpen = false
	}
}

// RenderNotes draws every batch as a bordered panel, newest batch first.
func RenderNotes(notes record.Notes) string {
	if len(notes) == 0 {
		return partialStyle.Render("no notes yet") + "\n"
	}
	var b strings.Builder
	for i := len(notes) - 1; i >= 0; i-- {
		b.WriteString(batchStyle.Render(renderBatch(i+1, notes[i])))
		b.WriteString("\n")
	}
	return b.String()
}

func renderBatch(number int, batch record.NoteBatch) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Batch %d", number)))
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n" + title + "\n")
		for _, item := range items {
			b.WriteString("  • " + item + "\n")
		}
	}
	section("Coursework", batch.Coursework)
	section("Knowledge", batch.Knowledge)
	section("Open questions", batch.Question)
	return strings.TrimRight(b.String(), "\n")
}
