package cmd

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#FFB3BA")
	muted  = lipgloss.Color("#6B7280")
	green  = lipgloss.Color("#A8E6CF")

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(muted)

	barStyle = lipgloss.NewStyle().
			Foreground(green)
)
