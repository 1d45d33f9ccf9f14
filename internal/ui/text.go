package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Style renders one kind of CLI value. Without color it falls back to the
// plain-text markers in open and close.
type Style struct {
	color *color.Color
	open  string
	close string
}

// Sprint renders its arguments in the style.
func (s Style) Sprint(a ...interface{}) string {
	text := fmt.Sprint(a...)
	if !colorEnabled() {
		return s.open + text + s.close
	}
	return s.color.Sprint(text)
}

var (
	// Code marks a command the user can run. `Backticks` without color.
	Code = Style{color: color.New(color.FgYellow), open: "`", close: "`"}

	// Path marks a local path or output target.
	Path = Style{color: color.New(color.FgYellow)}

	// Highlight marks a user, file name or record ID. 'Quoted' without color.
	Highlight = Style{color: color.New(color.FgCyan), open: "'", close: "'"}

	// Muted marks secondary details such as sizes. (Parenthesized) without color.
	Muted = Style{color: color.New(color.FgHiBlack), open: "(", close: ")"}

	Success = Style{color: color.New(color.FgGreen)}
	Warning = Style{color: color.New(color.FgYellow)}
	Error   = Style{color: color.New(color.FgRed)}
	Info    = Style{color: color.New(color.FgCyan)}
)

// Status marks that lead a line of command output.
const (
	MarkDone = "✓"
	MarkWarn = "⚠"
	MarkFail = "✗"
	MarkNext = "→"
)

// Done returns a success line, e.g. "✓ Uploaded 2 file(s)".
func Done(msg string) string { return Success.Sprint(MarkDone) + " " + msg }

// Warned returns a warning line.
func Warned(msg string) string { return Warning.Sprint(MarkWarn) + " " + msg }

// Failed returns a failure line.
func Failed(msg string) string { return Error.Sprint(MarkFail) + " " + msg }

// Next returns a hint line pointing at what to do next.
func Next(msg string) string { return Info.Sprint(MarkNext) + " " + msg }

// Lines joins the non-empty lines of a multi-line message.
func Lines(lines ...string) string {
	kept := lines[:0:0]
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// EnsureNewline appends a newline unless s already ends with one.
func EnsureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// colorEnabled honors NO_COLOR (https://no-color.org/) and fatih/color's
// terminal detection.
func colorEnabled() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return !color.NoColor
}
