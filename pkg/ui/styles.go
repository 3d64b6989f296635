package ui

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink = lipgloss.Color("#FFB3BA") // primary accent
	coralPink  = lipgloss.Color("#FFCCCB") // secondary accent
	mintGreen  = lipgloss.Color("#A8E6CF") // success states
	mutedGray  = lipgloss.Color("#6B7280") // secondary text
	paletteBg  = lipgloss.Color("#2A2A3A") // selected row
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	focusedSectionStyle = sectionStyle.
				Underline(true)

	cursorRowStyle = lipgloss.NewStyle().
			Background(paletteBg)

	checkedStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)
)
