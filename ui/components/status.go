package components

import (
	"strings"

	"github.com/cyberforge/cyberforge/ui/styles"
)

// KeyHelp is the one-line key reference shown in the status bar.
const KeyHelp = "tab section · ctrl+n/p panel · enter run · ctrl+s sort · ctrl+d desc · pgup/pgdn page · ctrl+w watch · ctrl+t mode · esc cancel · ctrl+c quit"

func RenderStatus(status string, loading bool, loadingDots int, width int) string {
	statusContent := status
	if loading {
		statusContent += strings.Repeat(".", loadingDots)
	}
	if width > len(statusContent)+len(KeyHelp)+6 {
		gap := width - len(statusContent) - len(KeyHelp) - 2
		statusContent += strings.Repeat(" ", gap) + KeyHelp
	}
	return styles.StatusStyle(width).Render(statusContent)
}
