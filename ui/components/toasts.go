package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/toast"
	"github.com/cyberforge/cyberforge/ui/styles"
)

var toastIcons = map[toast.Type]string{
	toast.Success: "✓",
	toast.Error:   "✗",
	toast.Warning: "!",
	toast.Info:    "i",
}

const countdownWidth = 10

// RenderToasts stacks the live toasts, newest last, each with a bar showing
// the time it has left.
func RenderToasts(toasts []toast.Toast, now time.Time, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(toasts))
	for _, t := range toasts {
		filled := int(t.Remaining(now)*countdownWidth + 0.5)
		bar := lipgloss.NewStyle().Foreground(styles.ToastColor(t.Type)).
			Render(strings.Repeat("━", filled)) +
			styles.MutedStyle().Render(strings.Repeat("─", countdownWidth-filled))
		text := toastIcons[t.Type] + " " + t.Message
		if room := width - countdownWidth - 8; room > 0 && lipgloss.Width(text) > room {
			text = truncate(text, room)
		}
		lines = append(lines, styles.ToastStyle(t.Type).Render(text+"  "+bar))
	}
	return lipgloss.JoinVertical(lipgloss.Right, lines...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
