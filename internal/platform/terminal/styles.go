package terminal

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorSuccess = lipgloss.Color("#8BC34A")
	colorFailure = lipgloss.Color("#E53935")
	colorWarning = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
	colorAccent  = lipgloss.Color("#00BCD4")
)

// Styles are bound to one writer so colors are dropped when it is not a
// terminal.
type Styles struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	Welcome lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Alert   lipgloss.Style
}

func NewStyles(out io.Writer) Styles {
	r := lipgloss.NewRenderer(out)
	panel := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(colorAccent),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Faint(true),
		Warning: r.NewStyle().Bold(true).Foreground(colorWarning),
		Error:   r.NewStyle().Bold(true).Foreground(colorFailure),

		Welcome: panel.BorderForeground(colorInfo),
		Info:    panel.BorderForeground(colorAccent),
		Success: panel.BorderForeground(colorSuccess),
		Failure: panel.BorderForeground(colorFailure),
		Alert:   panel.BorderForeground(colorWarning),
	}
}
