package main

import "github.com/charmbracelet/lipgloss"

// Terminal presentation for list-style output.
var (
	accentColor = lipgloss.Color("#8BC34A")
	mutedColor  = lipgloss.Color("#6b7280")
	warnColor   = lipgloss.Color("#FFC107")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	idStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	tagStyle    = lipgloss.NewStyle().Foreground(accentColor)
	scoreStyle  = lipgloss.NewStyle().Foreground(warnColor)
	noteStyle   = lipgloss.NewStyle().Italic(true).Foreground(mutedColor)
)
