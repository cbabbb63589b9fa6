package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskflow/internal/scheduler"
)

// Border styles
var (
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// Status styles
var (
	StyleStatusRunning = lipgloss.NewStyle().
				Foreground(lipgloss.Color("yellow")).
				Bold(true)

	StyleStatusComplete = lipgloss.NewStyle().
				Foreground(lipgloss.Color("green")).
				Bold(true)

	StyleStatusFailed = lipgloss.NewStyle().
				Foreground(lipgloss.Color("red")).
				Bold(true)

	StyleStatusQueued = lipgloss.NewStyle().
				Foreground(lipgloss.Color("cyan"))

	StyleStatusCancelled = lipgloss.NewStyle().
				Foreground(lipgloss.Color("magenta"))

	StyleStatusPending = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	StyleMuted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// statusStyle returns the style used for a status name.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case scheduler.StatusRunning.String():
		return StyleStatusRunning
	case scheduler.StatusCompleted.String():
		return StyleStatusComplete
	case scheduler.StatusFailed.String():
		return StyleStatusFailed
	case scheduler.StatusQueued.String():
		return StyleStatusQueued
	case scheduler.StatusCancelled.String():
		return StyleStatusCancelled
	default:
		return StyleStatusPending
	}
}
