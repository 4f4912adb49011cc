package watch

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	CriticalColor = lipgloss.Color("#CC3333")
	WarningColor  = lipgloss.Color("#FF8800")
	GoodColor     = lipgloss.Color("#228B22")
	InfoColor     = lipgloss.Color("#4682B4")
	TextColor     = lipgloss.Color("#CCCCCC")
	MutedColor    = lipgloss.Color("#888888")
	BorderColor   = lipgloss.Color("#666666")
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TextStyle     = lipgloss.NewStyle().Foreground(TextColor)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(InfoColor).
			Padding(0, 1).
			Bold(true)
	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Padding(0, 1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(CriticalColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(CriticalColor).
			Padding(1, 2)
)

// CreateProgressBar renders a filled/empty bar of the given width, colored
// by the supplied severity color.
func CreateProgressBar(fraction float64, width int, color lipgloss.Color) string {
	if width < 4 {
		return fmt.Sprintf("%.0f%%", fraction*100)
	}
	filled := int(math.Round(fraction * float64(width)))
	filled = max(min(filled, width), 0)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// PercentColor maps a 0..1 occupancy fraction to a severity color, using
// the same 70%/90% thresholds as GC pressure classification.
func PercentColor(fraction float64) lipgloss.Color {
	switch {
	case fraction >= 0.90:
		return CriticalColor
	case fraction >= 0.70:
		return WarningColor
	default:
		return GoodColor
	}
}
