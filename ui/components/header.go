package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/ui/styles"
)

// RenderHeader draws the title bar with backend health and the section tabs.
func RenderHeader(m mode.Mode, sections []mode.Section, active int, health api.Health, healthErr error, healthKnown bool, width int) string {
	var status string
	switch {
	case !healthKnown:
		status = "○ checking"
	case healthErr != nil:
		status = "● offline"
	default:
		status = "● online"
		if health.Version != "" {
			status += " v" + health.Version
		}
	}

	title := m.Title()
	gap := max(width-lipgloss.Width(title)-lipgloss.Width(status)-2, 1)
	bar := styles.HeaderStyle(m, width).Render(title + strings.Repeat(" ", gap) + status)

	tabs := make([]string, len(sections))
	for i, s := range sections {
		tabs[i] = styles.TabStyle(m, i == active).Render(s.Title)
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

// RenderPanelList shows the entries of a section with the selection marked.
func RenderPanelList(names []string, selected int, m mode.Mode) string {
	if len(names) == 0 {
		return ""
	}
	items := make([]string, len(names))
	for i, n := range names {
		if i == selected {
			items[i] = styles.TitleStyle(m).Render("▸ " + n)
		} else {
			items[i] = styles.MutedStyle().Render("  " + n)
		}
	}
	return strings.Join(items, "  ")
}
