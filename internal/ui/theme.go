package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorMantle   = lipgloss.Color("#181825")
	colorSurface1 = lipgloss.Color("#45475a")
	colorText     = lipgloss.Color("#cdd6f4")
	colorSubtext  = lipgloss.Color("#a6adc8")
	colorSapphire = lipgloss.Color("#74c7ec")
	colorGreen    = lipgloss.Color("#a6e3a1")
	colorRed      = lipgloss.Color("#f38ba8")
	colorPeach    = lipgloss.Color("#fab387")

	titleStyle = lipgloss.NewStyle().Foreground(colorSapphire).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorSubtext)
	hotStyle   = lipgloss.NewStyle().Foreground(colorPeach).Bold(true)
	buyStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	sellStyle  = lipgloss.NewStyle().Foreground(colorRed)

	barStyle = lipgloss.NewStyle().Background(colorMantle).Foreground(colorText)

	toastInfoStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSapphire).
			Padding(0, 1)
	toastErrorStyle = toastInfoStyle.BorderForeground(colorRed)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)
)
