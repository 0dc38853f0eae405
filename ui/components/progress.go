package components

import (
	"fmt"

	bprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/progress"
	"github.com/cyberforge/cyberforge/ui/styles"
)

// RenderProgress shows the watched scan. It is empty when nothing is watched.
func RenderProgress(scanID string, st progress.State, m mode.Mode, width int) string {
	if scanID == "" {
		return ""
	}
	bar := bprogress.New(
		bprogress.WithSolidFill(string(styles.For(m).Accent)),
		bprogress.WithWidth(max(width-30, 10)),
	)

	link := styles.ErrorStyle().Render("● disconnected")
	if st.Connected {
		link = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("● live")
	}
	head := fmt.Sprintf("%s %s  %s  %s",
		styles.TitleStyle(m).Render("Scan"), scanID, st.Status, link)

	body := bar.ViewAs(min(max(st.Progress, 0), 100) / 100)
	if st.CurrentTask != "" {
		body += "\n" + styles.MutedStyle().Render(st.CurrentTask)
	}
	return lipgloss.JoinVertical(lipgloss.Left, head, body)
}
