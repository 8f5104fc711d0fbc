package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: lime accent on a gray scale.
const (
	ColorLime     = "154" // Primary accent
	ColorLimeDim  = "106" // Dimmed lime for inactive elements
	ColorWhite    = "255" // Headwords
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Borders, separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings, busy indicator
)

// Styles holds all UI styles.
type Styles struct {
	Header   lipgloss.Style
	Prompt   lipgloss.Style
	Headword lipgloss.Style
	Gloss    lipgloss.Style
	Category lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Label    lipgloss.Style
	Busy     lipgloss.Style
	Error    lipgloss.Style
	Panel    lipgloss.Style
	Chart    lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Headword: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Gloss:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Category: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(ColorLimeDim)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Busy:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Chart: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:   plain,
		Prompt:   plain,
		Headword: plain,
		Gloss:    plain,
		Category: plain,
		Selected: plain,
		Dim:      plain,
		Label:    plain,
		Busy:     plain,
		Error:    plain,
		Panel:    plain,
		Chart:    plain,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
