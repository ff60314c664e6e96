package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#FF6600")

	HeaderStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)
