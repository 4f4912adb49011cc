package watch

import (
	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
)

// renderSparkline draws values (oldest first) into a width x height block,
// used for the rolling heap/GC history series the Store keeps per target.
func renderSparkline(values []uint64, width, height int, color lipgloss.Color) string {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	sl := sparkline.New(width, height, sparkline.WithStyle(lipgloss.NewStyle().Foreground(color)))
	for _, v := range values {
		sl.Push(float64(v))
	}
	sl.Draw()
	return sl.View()
}
