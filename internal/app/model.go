package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cyberforge/cyberforge/internal/dispatcher"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/models"
	"github.com/cyberforge/cyberforge/internal/update"
	"github.com/cyberforge/cyberforge/ui/components"
	"github.com/cyberforge/cyberforge/ui/styles"
)

// AppModel is the bubbletea model. Views are rendered behind an error
// boundary so one broken view does not take the dashboard down.
type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
	boundary   *components.Boundary
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.dispatcher.ListenForCoreEvents(),
		textinput.Blink,
		m.appModel.Spinner.Tick,
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case update.CoreEventMsg:
		// Handle core events and continue listening
		cmd := update.HandleCoreEvent(&m.appModel, msg)
		return m, tea.Batch(cmd, m.dispatcher.ListenForCoreEvents())
	case update.BusClosedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+r" && m.boundary.Failed() {
			m.boundary.Reset()
			m.appModel.Status = "Retrying"
			return m, nil
		}
	}

	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, msg, eventBus)

	return m, cmd
}

func (m *AppModel) View() string {
	am := &m.appModel
	width := am.Width
	if width == 0 {
		width = 80
	}

	var b strings.Builder

	b.WriteString(m.boundary.Render("header", width, func() string {
		return components.RenderHeader(am.Mode, am.Sections(), am.Section, am.Health, am.HealthErr, am.HealthKnown, width)
	}))
	b.WriteString("\n")

	if !am.SetupComplete {
		b.WriteString(styles.MutedStyle().Render("Setup incomplete: run `cyberforge setup` to pick a mode and profile.") + "\n")
	}

	b.WriteString(m.boundary.Render(am.CurrentSection().Key, width, func() string {
		return m.renderSection(width)
	}))
	b.WriteString("\n")

	if am.ScanID != "" {
		b.WriteString(m.boundary.Render("progress", width, func() string {
			return components.RenderProgress(am.ScanID, am.Progress, am.Mode, width)
		}))
		b.WriteString("\n")
	}

	if toasts := components.RenderToasts(am.Toasts, am.Now, width); toasts != "" {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Right, toasts))
		b.WriteString("\n")
	}

	if am.PendingConfirmation != nil {
		b.WriteString(components.RenderConfirmation(am.PendingConfirmation, width))
		b.WriteString("\n")
	} else {
		b.WriteString(components.RenderInput(am.Input, am.Mode, width))
		b.WriteString("\n")
	}

	status := am.Status
	if am.Busy() {
		status = am.Spinner.View() + " " + status
	}
	b.WriteString(components.RenderStatus(status, am.Busy(), am.LoadingDots, width))

	return b.String()
}

// renderSection draws the entry list of the section and the selected entry.
func (m *AppModel) renderSection(width int) string {
	am := &m.appModel

	var names []string
	if am.CurrentSection().Key == mode.SectionAssistant {
		names = append(names, "Chat")
	}
	for _, p := range am.SectionPanels() {
		names = append(names, p.Title)
	}

	parts := []string{components.RenderPanelList(names, am.PanelIndex, am.Mode)}

	switch {
	case am.ChatActive():
		parts = append(parts, am.ChatView.View())
	case am.CurrentSection().Key == mode.SectionDashboard && am.Panel.Panel == "":
		parts = append(parts, components.RenderDashboard(am.Stats, am.StatsErr, am.Mode, width))
	default:
		parts = append(parts, m.renderPanel(width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *AppModel) renderPanel(width int) string {
	am := &m.appModel
	p := am.CurrentPanel()
	if p == nil {
		return styles.MutedStyle().Render("Nothing to show in this section.")
	}

	title := styles.TitleStyle(am.Mode).Render(p.Title)
	if p.Dangerous {
		title += " " + styles.ErrorStyle().Render("[confirm]")
	}
	view := am.Panel

	switch {
	case view.Panel != p.Name:
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.MutedStyle().Render(usage(p.Primary().Label)))
	case view.Running:
		return lipgloss.JoinVertical(lipgloss.Left, title, am.Spinner.View()+" running")
	case view.Err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.ErrorStyle().Render("✗ "+view.Err.Error()))
	}

	parts := []string{title + styles.MutedStyle().Render("  "+view.Elapsed.String())}
	if analysis := view.Doc.String("analysis"); analysis != "" {
		parts = append(parts, components.RenderMarkdown(analysis))
	} else {
		parts = append(parts, components.RenderTable(view.Table, view.Page, am.PerPage(), am.Mode, width))
	}
	if view.ScanID() != "" && am.ScanID != view.ScanID() {
		parts = append(parts, styles.MutedStyle().Render("ctrl+w to watch scan "+view.ScanID()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func usage(label string) string {
	if label == "" {
		return "Press enter to run."
	}
	return "Enter " + strings.ToLower(label) + " and press enter. Extra inputs take name=value."
}
