// File: internal/ui/term.go
// Brief: Internal ui package implementation for 'terminal helpers'.

package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsTerminal reports whether w is attached to a TTY.
func IsTerminal(w io.Writer) bool {
	type fdProvider interface {
		Fd() uintptr
	}
	if v, ok := w.(fdProvider); ok {
		return term.IsTerminal(int(v.Fd()))
	}
	return false
}

// ColorEnabled resolves a --color mode (auto, always, never) for w. NO_COLOR
// disables color in auto mode.
func ColorEnabled(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		return IsTerminal(w), nil
	default:
		return false, fmt.Errorf("unknown color mode %q (expected auto, always, or never)", mode)
	}
}
