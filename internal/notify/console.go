package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console prints notices as single lines.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	colors map[Level]*color.Color
}

// NewConsole writes to out. Colour is enabled only when out is a terminal.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	enabled := shouldColorize(out)
	palette := map[Level]*color.Color{
		LevelSuccess: color.New(color.FgGreen),
		LevelInfo:    color.New(color.FgCyan),
		LevelWarning: color.New(color.FgYellow),
		LevelError:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range palette {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &Console{out: out, colors: palette}
}

func (c *Console) Notify(_ context.Context, n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	label := fmt.Sprintf("[%s]", n.Level)
	if painter, ok := c.colors[n.Level]; ok {
		label = painter.Sprint(label)
	}
	fmt.Fprintf(c.out, "%s %s\n", label, n.String())
}

func shouldColorize(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
