package models

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/chat"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/internal/progress"
	"github.com/cyberforge/cyberforge/internal/toast"
)

// ConfirmationRequest represents a confirmation request (avoiding import cycle)
type ConfirmationRequest struct {
	ID        string
	Operation string
	Command   string
	Dangerous bool
}

// PanelView is the last run of the selected panel.
type PanelView struct {
	Panel   string
	CallID  string
	Running bool
	Doc     api.Document
	Table   *panels.Table
	Page    int
	Err     error
	Elapsed time.Duration
}

// ScanID returns the scan id of the shown result, if any.
func (v PanelView) ScanID() string {
	return v.Doc.String("scan_id")
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Mode       mode.Mode
	Section    int // index into mode.Navigation(Mode)
	PanelIndex int // selected entry within the section

	Chat     chat.Snapshot
	ChatView viewport.Model
	Panel    PanelView

	ScanID   string
	Progress progress.State
	Toasts   []toast.Toast

	Stats       api.Document
	StatsErr    error
	Health      api.Health
	HealthErr   error
	HealthKnown bool

	Input   textinput.Model
	Spinner spinner.Model

	Status      string
	LoadingDots int // Animation counter for loading dots
	Width       int
	Height      int
	Now         time.Time

	SetupComplete       bool
	Registry            *panels.Registry
	PendingConfirmation *ConfirmationRequest
}

// NewAppModel builds the initial UI state.
func NewAppModel(reg *panels.Registry, m mode.Mode, setupComplete bool) AppModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	am := AppModel{
		Mode:          m,
		ChatView:      viewport.New(80, 10),
		Progress:      progress.Idle(),
		Input:         ti,
		Spinner:       sp,
		Status:        "Ready",
		Now:           time.Now(),
		SetupComplete: setupComplete,
		Registry:      reg,
	}
	am.SyncInput()
	return am
}

// Sections lists the navigation of the current mode.
func (m *AppModel) Sections() []mode.Section {
	return mode.Navigation(m.Mode)
}

// CurrentSection returns the selected section.
func (m *AppModel) CurrentSection() mode.Section {
	secs := m.Sections()
	if m.Section < 0 || m.Section >= len(secs) {
		return secs[0]
	}
	return secs[m.Section]
}

// Entries is the number of selectable entries in the section. The assistant
// section has the chat as its first entry, ahead of its panels.
func (m *AppModel) Entries() int {
	n := len(m.SectionPanels())
	if m.CurrentSection().Key == mode.SectionAssistant {
		n++
	}
	return n
}

// SectionPanels lists the panels of the current section.
func (m *AppModel) SectionPanels() []*panels.Panel {
	if m.Registry == nil {
		return nil
	}
	return m.Registry.ForSection(m.CurrentSection().Key)
}

// ChatActive reports whether the input line talks to the assistant.
func (m *AppModel) ChatActive() bool {
	return m.CurrentSection().Key == mode.SectionAssistant && m.PanelIndex == 0
}

// CurrentPanel returns the selected panel, or nil for the chat entry.
func (m *AppModel) CurrentPanel() *panels.Panel {
	ps := m.SectionPanels()
	i := m.PanelIndex
	if m.CurrentSection().Key == mode.SectionAssistant {
		i--
	}
	if i < 0 || i >= len(ps) {
		return nil
	}
	return ps[i]
}

// MoveSection selects the section delta steps away, wrapping around.
func (m *AppModel) MoveSection(delta int) {
	n := len(m.Sections())
	m.Section = ((m.Section+delta)%n + n) % n
	m.PanelIndex = 0
	m.Panel = PanelView{}
	m.SyncInput()
}

// MovePanel selects the entry delta steps away within the section.
func (m *AppModel) MovePanel(delta int) {
	n := m.Entries()
	if n == 0 {
		return
	}
	m.PanelIndex = ((m.PanelIndex+delta)%n + n) % n
	m.Panel = PanelView{}
	m.SyncInput()
}

// SetMode switches mode, keeping the section selected when the new mode has it.
func (m *AppModel) SetMode(next mode.Mode) {
	key := m.CurrentSection().Key
	m.Mode = next
	m.Section = 0
	for i, s := range m.Sections() {
		if s.Key == key {
			m.Section = i
			break
		}
	}
	if m.PanelIndex >= m.Entries() {
		m.PanelIndex = 0
		m.Panel = PanelView{}
	}
	m.SyncInput()
}

// SyncInput updates the input placeholder for the selected entry.
func (m *AppModel) SyncInput() {
	switch p := m.CurrentPanel(); {
	case m.ChatActive():
		m.Input.Placeholder = "Ask the assistant..."
	case p == nil:
		m.Input.Placeholder = ""
	case p.Primary().Name == "":
		m.Input.Placeholder = "Press Enter to run " + p.Title
	default:
		m.Input.Placeholder = p.Primary().Label
	}
}

// Busy reports whether a chat reply or panel run is in flight.
func (m *AppModel) Busy() bool {
	return m.Chat.Phase.Busy() || m.Panel.Running
}

// PerPage is the number of table rows that fit the window.
func (m *AppModel) PerPage() int {
	if m.Height <= 0 {
		return panels.DefaultPerPage
	}
	return min(max(m.Height-20, 3), panels.DefaultPerPage)
}
