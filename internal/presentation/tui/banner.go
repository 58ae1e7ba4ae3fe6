package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` _                                    `, "#818cf8"},
	{`| |__   __ _ _ __ _ __   ___  ___ ___ `, "#a78bfa"},
	{`| '_ \ / _' | '__| '_ \ / _ \/ __/ __|`, "#c084fc"},
	{`| | | | (_| | |  | | | |  __/\__ \__ \`, "#e879f9"},
	{`|_| |_|\__,_|_|  |_| |_|\___||___/___/`, "#f472b6"},
}

// PrintBanner writes the ASCII art banner and version to w.
// Colours are dropped when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version+"  type :help for commands").Faint())
	fmt.Fprintln(w)
}

// ErrorStyle returns a decorator that paints failure messages red on w.
func ErrorStyle(w io.Writer) func(string) string {
	out := termenv.NewOutput(w)
	return func(s string) string {
		return out.String(s).Foreground(out.Color("#f87171")).String()
	}
}
