package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/models"
	"github.com/cyberforge/cyberforge/ui/styles"
)

// RenderConfirmation asks the user to approve a dangerous run.
func RenderConfirmation(req *models.ConfirmationRequest, width int) string {
	if req == nil {
		return ""
	}
	title := "Confirm: " + req.Operation
	if req.Dangerous {
		title = "⚠ " + title + " (acts on remote hosts)"
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		styles.ErrorStyle().Render(title),
		req.Command,
		styles.MutedStyle().Render("y approve · n decline"),
	)
	return styles.ConfirmStyle(width).Render(body)
}
