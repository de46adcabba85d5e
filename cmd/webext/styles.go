package main

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every command's output.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // accent, errors
	mintGreen   = lipgloss.Color("#A8E6CF") // enabled, success
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	enabledStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	cellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)
)

// renderTable lays rows out in left-aligned columns. The first row is the
// header.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := cellStyle.Width(widths[i] + 2)
			if r == 0 {
				style = style.Inherit(headerStyle)
			}
			cells[i] = style.Render(cell)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
