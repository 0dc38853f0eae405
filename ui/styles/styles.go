package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/toast"
)

// Palette is the colour set of one mode.
type Palette struct {
	Accent lipgloss.Color
	Soft   lipgloss.Color
	Muted  lipgloss.Color
}

var (
	forgePalette  = Palette{Accent: lipgloss.Color("39"), Soft: lipgloss.Color("117"), Muted: lipgloss.Color("241")}
	lancerPalette = Palette{Accent: lipgloss.Color("203"), Soft: lipgloss.Color("216"), Muted: lipgloss.Color("241")}
)

// For returns the palette of m.
func For(m mode.Mode) Palette {
	if m == mode.Lancer {
		return lancerPalette
	}
	return forgePalette
}

func InputStyle(m mode.Mode, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(For(m).Accent).
		Padding(0, 1).
		Width(max(width-4, 10))
}

func StatusStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func HeaderStyle(m mode.Mode, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(For(m).Accent).
		Padding(0, 1).
		Width(width)
}

func TabStyle(m mode.Mode, active bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return s.Bold(true).Foreground(For(m).Accent).Underline(true)
	}
	return s.Foreground(For(m).Muted)
}

func SystemStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Padding(0, 2)
}

func UserStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("252")).
		Padding(0, 1).
		MarginLeft(2)
}

func AssistantStyle(m mode.Mode) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(For(m).Soft).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(For(m).Accent).
		Padding(0, 1).
		MarginLeft(2)
}

func TitleStyle(m mode.Mode) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(For(m).Accent).
		Bold(true)
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
}

func ErrorBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(0, 1).
		Width(max(width-4, 20))
}

func ConfirmStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(0, 1).
		Width(max(width-4, 20))
}

func CardStyle(m mode.Mode) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(For(m).Muted).
		Padding(0, 1).
		MarginRight(1)
}

func TableHeaderStyle(m mode.Mode) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(For(m).Accent).Padding(0, 1)
}

func CellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

var toastColors = map[toast.Type]lipgloss.Color{
	toast.Success: lipgloss.Color("42"),
	toast.Error:   lipgloss.Color("196"),
	toast.Warning: lipgloss.Color("214"),
	toast.Info:    lipgloss.Color("39"),
}

func ToastColor(t toast.Type) lipgloss.Color {
	if c, ok := toastColors[t]; ok {
		return c
	}
	return toastColors[toast.Info]
}

func ToastStyle(t toast.Type) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		BorderForeground(ToastColor(t)).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)
}

var severityColors = map[string]lipgloss.Color{
	"critical": lipgloss.Color("196"),
	"high":     lipgloss.Color("202"),
	"medium":   lipgloss.Color("214"),
	"moderate": lipgloss.Color("214"),
	"low":      lipgloss.Color("42"),
	"info":     lipgloss.Color("39"),
}

// SeverityStyle colours a severity cell; other values render plain.
func SeverityStyle(value string) (lipgloss.Style, bool) {
	c, ok := severityColors[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return lipgloss.NewStyle(), false
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true), true
}

// Markdown styles
func CodeBlockStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Padding(0, 1).
		MarginLeft(2)
}

func BoldStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true)
}

func ItalicStyle() lipgloss.Style {
	return lipgloss.NewStyle().Italic(true)
}

func LinkStyle() lipgloss.Style {
	return lipgloss.NewStyle().Underline(true)
}

func ListStyle() lipgloss.Style {
	return lipgloss.NewStyle().MarginLeft(2)
}
