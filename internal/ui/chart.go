package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/libstats/internal/stats"
)

const (
	barRune      = "█"
	defaultWidth = 80
	minBarWidth  = 10
)

// RenderHistogram draws fm as a horizontal bar chart no wider than width columns.
//
// Bars are scaled to the largest count; any non-zero count gets at least one cell.
func RenderHistogram(title string, fm *stats.FrequencyMap, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")

	if fm == nil || fm.Len() == 0 {
		b.WriteString(styles.help.Render("No data"))
		return b.String()
	}

	labelWidth, countWidth := 0, len(strconv.Itoa(fm.Max()))
	for _, k := range fm.Keys() {
		labelWidth = max(labelWidth, lipgloss.Width(k))
	}

	barWidth := max(width-labelWidth-countWidth-3, minBarWidth)
	highest := fm.Max()

	for _, e := range fm.Entries() {
		cells := 0
		if highest > 0 {
			cells = e.Count * barWidth / highest
			if e.Count > 0 && cells == 0 {
				cells = 1
			}
		}

		label := e.Key + strings.Repeat(" ", labelWidth-lipgloss.Width(e.Key))
		fmt.Fprintf(&b, "%s %s %*d\n",
			styles.label.Render(label),
			styles.bar.Render(strings.Repeat(barRune, cells)+strings.Repeat(" ", barWidth-cells)),
			countWidth, e.Count,
		)
	}

	fmt.Fprintf(&b, "%s", styles.help.Render(fmt.Sprintf("total %d across %d buckets", fm.Total(), fm.Len())))
	return b.String()
}
