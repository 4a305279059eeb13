package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorBlue   = lipgloss.Color("39")
	ColorGreen  = lipgloss.Color("42")
	ColorYellow = lipgloss.Color("220")
	ColorOrange = lipgloss.Color("208")
	ColorRed    = lipgloss.Color("196")
	ColorGray   = lipgloss.Color("244")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	labelStyle    = lipgloss.NewStyle().Foreground(ColorGray)
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	errorStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	helpStyle     = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	urlStyle      = lipgloss.NewStyle().Foreground(ColorBlue).Underline(true)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)
)

// magnitudeColor grades a magnitude the way seismic maps usually do.
func magnitudeColor(mag float64) lipgloss.Color {
	switch {
	case mag >= 7:
		return ColorRed
	case mag >= 5:
		return ColorOrange
	case mag >= 3:
		return ColorYellow
	default:
		return ColorGreen
	}
}
