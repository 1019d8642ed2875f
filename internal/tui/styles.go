package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

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

	// Header styles
	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(Primary).
		Padding(0, 2)

	// Section styles
	SectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Subtle).
		Padding(0, 1)

	SectionTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	LabelStyle = lipgloss.NewStyle().
		Foreground(Subtle).
		Width(26)

	ValueStyle = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(Success)

	WarningStyle = lipgloss.NewStyle().
		Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	DimStyle = lipgloss.NewStyle().
		Foreground(Subtle).
		Italic(true)

	HelpStyle = lipgloss.NewStyle().
		Foreground(Subtle).
		MarginTop(1)

	LoadingStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Padding(2, 4)

	SelectedStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)
)

// LabelColor returns the style for an aggregate label.
func LabelColor(l model.Label) lipgloss.Style {
	switch l {
	case model.LabelExcellent:
		return SuccessStyle
	case model.LabelGood:
		return ValueStyle
	case model.LabelUnstable:
		return WarningStyle
	case model.LabelPoor:
		return ErrorStyle
	}
	return DimStyle
}

// RenderBar renders a proportional bar.
func RenderBar(value, max int, width int) string {
	if max == 0 {
		max = 1
	}

	filled := int(float64(value) / float64(max) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(Secondary).Render(bar)
}
