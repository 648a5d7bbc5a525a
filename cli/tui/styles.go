// Package tui provides the Bubble Tea walkthrough viewer for the codestory CLI.
//
// Viewer rules:
//   - opt-in only (--tui flag)
//   - read-only
//   - shows the same result payload as the json, yaml and table formats
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/codestory/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
	rangeColor     = lipgloss.Color("#1E3A8A") // Navy
)

// Styles for TUI components.
var (
	// TitleStyle for the screen header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// SectionStyle for headings inside the overview.
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// MutedStyle for secondary text and line numbers.
	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// PaneStyle for an unfocused pane.
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// FocusedPaneStyle for the pane receiving keys.
	FocusedPaneStyle = PaneStyle.
				BorderForeground(primaryColor)

	// RangeStyle for source lines inside the selected step's range.
	RangeStyle = lipgloss.NewStyle().
			Background(rangeColor).
			Foreground(lipgloss.Color("#FFFFFF"))

	// SelectedStepStyle for the selected walkthrough step.
	SelectedStepStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(highlightColor)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(16).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// SeverityStyle returns the style for an issue severity.
func SeverityStyle(s types.Severity) lipgloss.Style {
	switch s {
	case types.SeverityLow:
		return lipgloss.NewStyle().Foreground(successColor)
	case types.SeverityHigh:
		return lipgloss.NewStyle().Foreground(errorColor)
	case types.SeverityCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	default:
		return lipgloss.NewStyle().Foreground(warningColor)
	}
}
