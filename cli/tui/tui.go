package tui

import (
	"errors"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/codestory/analysis"
)

// ErrNoResult is returned when there is no analysis to show.
var ErrNoResult = errors.New("tui: no analysis to show")

var supportedCommands = []string{"analyze", "align"}

// IsTUISupported returns true if the command can open the viewer.
func IsTUISupported(command string) bool {
	return slices.Contains(supportedCommands, command)
}

// SupportedCommands returns the commands that accept --tui.
func SupportedCommands() []string {
	return slices.Clone(supportedCommands)
}

// Run starts the walkthrough viewer and blocks until the user quits.
func Run(result *analysis.Result) error {
	if result == nil {
		return ErrNoResult
	}
	p := tea.NewProgram(NewWalkthroughModel(result), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatic renders the first walkthrough screen without starting a
// program. Used when stdout is not a terminal.
func RenderStatic(result *analysis.Result) (string, error) {
	if result == nil {
		return "", ErrNoResult
	}
	model := NewWalkthroughModel(result)
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View()), nil
}
