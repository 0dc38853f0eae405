package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/ui/styles"
)

// RenderTable draws one page of t with its sort and page footer.
func RenderTable(t *panels.Table, page, perPage int, m mode.Mode, width int) string {
	if t == nil || len(t.Rows) == 0 {
		return styles.MutedStyle().Render("No results.")
	}
	rows, info := t.Page(page, perPage)

	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col
		if col == t.SortBy {
			if t.Desc {
				headers[i] += " ↓"
			} else {
				headers[i] += " ↑"
			}
		}
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		line := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			line[j] = truncate(panels.FormatCell(r[col]), 40)
		}
		cells[i] = line
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.For(m).Muted)).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle(m)
			}
			if row >= 0 && row < len(cells) && col < len(cells[row]) {
				if s, ok := styles.SeverityStyle(cells[row][col]); ok {
					return s.Padding(0, 1)
				}
			}
			return styles.CellStyle()
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		tbl.Render(),
		styles.MutedStyle().Render(info.String()),
	)
}
