package ui

import "github.com/charmbracelet/lipgloss"

// Palette shared by command output and record rendering (ANSI 256 colors)
const (
	colorAccent  = lipgloss.Color("86")
	colorUser    = lipgloss.Color("39")
	colorMuted   = lipgloss.Color("245")
	colorValue   = lipgloss.Color("229")
	colorHeading = lipgloss.Color("212")
	colorWarning = lipgloss.Color("214")
	colorSuccess = lipgloss.Color("42")
	colorError   = lipgloss.Color("196")
)

const boxWidth = 60

// Styles used outside this package (help template, credit hints)
var Styles = struct {
	Bold    lipgloss.Style
	Warning lipgloss.Style
}{
	Bold:    lipgloss.NewStyle().Bold(true),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
}

func resultBox(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(boxWidth)
}
