package cli

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

// IsInteractive reports whether stdout is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the width of the terminal in columns.
// It tries the following methods in order:
// 1. terminal size query on stdout
// 2. COLUMNS environment variable
// 3. Default to 80 columns.
func GetTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if width, err := strconv.Atoi(cols); err == nil && width > 0 {
			return width
		}
	}

	return 80
}

// wrapWidth is the text-wrap width for long-form output, leaving a small
// right margin. Piped output falls back to 76 columns.
func wrapWidth() int {
	if !IsInteractive() {
		return 76
	}
	width := GetTerminalWidth() - 4
	if width < 40 {
		width = 40
	}
	return width
}
