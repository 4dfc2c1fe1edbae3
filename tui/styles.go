package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#E8C4A0")
	secondaryColor = lipgloss.Color("#7EBB81")
	accentColor    = lipgloss.Color("#A8C9A4")
	mutedColor     = lipgloss.Color("#B8A890")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	systemLabelStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)
)
