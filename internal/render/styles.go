// Package render formats reports for the terminal. It is the only package
// that emits display markup; report text stays plain.
package render

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/user/netdiag/internal/model"
)

var (
	// Colors
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("86")
	Subtle    = lipgloss.Color("241")
	Success   = lipgloss.Color("46")
	Warning   = lipgloss.Color("214")
	Error     = lipgloss.Color("196")
)

const defaultWidth = 80

// Styles is the set of styles bound to one output.
type Styles struct {
	Header   lipgloss.Style
	Section  lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Raw      lipgloss.Style
	Prompt   lipgloss.Style
	Selected lipgloss.Style
}

// NewStyles builds the styles for a renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Primary).
			Padding(0, 2),
		Section: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 1),
		Title: r.NewStyle().
			Bold(true).
			Foreground(Primary),
		Label: r.NewStyle().
			Foreground(Subtle),
		Value: r.NewStyle().
			Foreground(Secondary).
			Bold(true),
		Success: r.NewStyle().Foreground(Success),
		Warning: r.NewStyle().Foreground(Warning),
		Error: r.NewStyle().
			Foreground(Error).
			Bold(true),
		Dim: r.NewStyle().
			Foreground(Subtle).
			Italic(true),
		Raw: r.NewStyle().
			Foreground(Subtle),
		Prompt: r.NewStyle().
			Foreground(Secondary),
		Selected: r.NewStyle().
			Foreground(Primary).
			Bold(true),
	}
}

// ForLabel returns the style that colors an aggregate label.
func (s Styles) ForLabel(l model.Label) lipgloss.Style {
	switch l {
	case model.LabelExcellent:
		return s.Success
	case model.LabelGood:
		return s.Value
	case model.LabelUnstable:
		return s.Warning
	case model.LabelPoor:
		return s.Error
	}
	return s.Dim
}

// ForSeverity returns the style for an issue severity.
func (s Styles) ForSeverity(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityBad:
		return s.Error
	case model.SeverityWarn:
		return s.Warning
	}
	return s.Success
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Width returns the terminal width of w, or 80 when unknown.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// newRenderer returns a lipgloss renderer for w. Color is dropped when w is
// not a terminal, NO_COLOR is set, or plain is requested.
func newRenderer(w io.Writer, plain bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if plain || !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}
