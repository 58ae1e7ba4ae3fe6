package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders JSON output as a highlighted
// markdown code block using glamour.
// An empty style selects light or dark from the terminal background.
func NewRenderer(style string) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}

	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(0))
	if err != nil {
		return nil, err
	}

	return func(content string) (string, error) {
		return r.Render(Fence(content))
	}, nil
}

// Fence wraps content in a json code fence.
func Fence(content string) string {
	return "```json\n" + content + "\n```\n"
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
