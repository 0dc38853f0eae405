package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/ui/styles"
)

type statCard struct {
	key   string
	label string
}

var statCards = []statCard{
	{"total_scans", "Scans"},
	{"vulnerabilities_found", "Vulnerabilities"},
	{"threats_detected", "Threats"},
	{"reports_generated", "Reports"},
}

// RenderDashboard shows the stat cards and the recent scans. A failed
// refresh keeps the last numbers and adds the error underneath.
func RenderDashboard(stats api.Document, statsErr error, m mode.Mode, width int) string {
	if stats == nil && statsErr == nil {
		return styles.MutedStyle().Render("Loading dashboard statistics...")
	}

	var sections []string
	if stats != nil {
		cards := make([]string, 0, len(statCards))
		for _, c := range statCards {
			value := panels.FormatCell(stats[c.key])
			cards = append(cards, styles.CardStyle(m).Render(lipgloss.JoinVertical(lipgloss.Left,
				styles.TitleStyle(m).Render(value),
				styles.MutedStyle().Render(c.label),
			)))
		}
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, cards...))

		if recent, ok := stats["recent_scans"].([]any); ok && len(recent) > 0 {
			t := panels.NewTable(api.Document{"results": recent})
			sections = append(sections,
				styles.TitleStyle(m).Render("Recent scans"),
				RenderTable(t, 1, 5, m, width),
			)
		}
	}
	if statsErr != nil {
		sections = append(sections, styles.ErrorStyle().Render("Stats refresh failed: "+statsErr.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
