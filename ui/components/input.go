package components

import (
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/ui/styles"
)

func RenderInput(input textinput.Model, m mode.Mode, width int) string {
	input.Width = max(width-10, 10)
	return styles.InputStyle(m, width).Render(input.View())
}
