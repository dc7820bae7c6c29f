// Package formatter renders report tables for the terminal.
package formatter

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	ColorHeader = lipgloss.Color("#fe8019")
	ColorDim    = lipgloss.Color("#928374")
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorFg     = lipgloss.Color("#ebdbb2")
)

// Styles holds the styles a report is rendered with. The zero value renders
// plain text.
type Styles struct {
	Header lipgloss.Style
	Dim    lipgloss.Style
	Good   lipgloss.Style
	Bad    lipgloss.Style
	Bold   lipgloss.Style
}

// NewStyles returns coloured styles, or plain ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		return Plain()
	}
	return Styles{
		Header: lipgloss.NewStyle().Foreground(ColorHeader).Bold(true),
		Dim:    lipgloss.NewStyle().Foreground(ColorDim),
		Good:   lipgloss.NewStyle().Foreground(ColorGreen),
		Bad:    lipgloss.NewStyle().Foreground(ColorRed),
		Bold:   lipgloss.NewStyle().Foreground(ColorFg).Bold(true),
	}
}

// Plain returns styles that add no escape sequences.
func Plain() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Header: plain, Dim: plain, Good: plain, Bad: plain, Bold: plain}
}

// ForWriter picks coloured styles when w is a terminal and NO_COLOR is unset.
func ForWriter(w io.Writer) Styles {
	return NewStyles(IsTerminal(w) && os.Getenv("NO_COLOR") == "")
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
