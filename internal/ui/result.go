// File: internal/ui/result.go
// Brief: Colored result lines for the CLI.

package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Printer writes result lines to a single stream.
type Printer struct {
	out     io.Writer
	errLine *color.Color
	okLine  *color.Color
	dim     *color.Color
}

// NewPrinter returns a printer; colorize forces color on or off regardless of
// the global fatih/color detection.
func NewPrinter(out io.Writer, colorize bool) *Printer {
	p := &Printer{
		out:     out,
		errLine: color.New(color.FgRed, color.Bold),
		okLine:  color.New(color.FgGreen),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.errLine, p.okLine, p.dim} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Error prints "Error: <err>" in red.
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(p.out, p.errLine.Sprintf("Error: %s", err))
}

// Success prints a green summary line followed by dimmed notes.
func (p *Printer) Success(summary string, notes ...string) {
	fmt.Fprintln(p.out, p.okLine.Sprint(summary))
	for _, note := range notes {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		fmt.Fprintln(p.out, p.dim.Sprintf("  %s", note))
	}
}
