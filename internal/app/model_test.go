package app

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/dispatcher"
	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/logging"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/models"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/internal/update"
	"github.com/cyberforge/cyberforge/ui/components"
)

func newTestAppModel(t *testing.T) (*AppModel, *eventbus.EventBus) {
	t.Helper()
	eb := eventbus.NewEventBus()
	disp := dispatcher.NewEventDispatcher(eb)
	t.Cleanup(func() {
		disp.Stop()
		eb.Close()
	})
	return &AppModel{
		appModel:   models.NewAppModel(panels.NewBuiltinRegistry(), mode.Forge, false),
		dispatcher: disp,
		boundary:   components.NewBoundary(logging.NewWithWriter(io.Discard, nil)),
	}, eb
}

func TestView_Dashboard(t *testing.T) {
	m, _ := newTestAppModel(t)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	out := m.View()
	assert.Contains(t, out, "CyberForge")
	assert.Contains(t, out, "checking")
	assert.Contains(t, out, "Setup incomplete")
	assert.Contains(t, out, "Loading dashboard statistics")

	m.Update(update.CoreEventMsg{Event: eventbus.StatsUpdateEvent{Stats: api.Document{"total_scans": float64(12)}}})
	m.Update(update.CoreEventMsg{Event: eventbus.HealthUpdateEvent{Health: api.Health{Status: "ok", Version: "1.0.0"}}})
	out = m.View()
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "online v1.0.0")
}

func TestView_LancerAndConfirmation(t *testing.T) {
	m, _ := newTestAppModel(t)
	m.Update(update.CoreEventMsg{Event: eventbus.ModeChangedEvent{Mode: mode.Lancer}})
	m.Update(update.CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "1", Operation: "Seek", Command: "seek.seek cidr=10.0.0.0/24", Dangerous: true}})

	out := m.View()
	assert.Contains(t, out, "CyberLancer")
	assert.Contains(t, out, "Seek & Enter")
	assert.Contains(t, out, "seek.seek cidr=10.0.0.0/24")
	assert.Contains(t, out, "y approve")
}

func TestUpdate_CoreEventKeepsListening(t *testing.T) {
	m, eb := newTestAppModel(t)
	_, cmd := m.Update(update.CoreEventMsg{Event: eventbus.ToastsUpdateEvent{}})
	require.NotNil(t, cmd)

	require.NoError(t, eb.SendToUI(eventbus.ModeChangedEvent{Mode: mode.Lancer}))
	// the returned command holds the next listen
	var got []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			if c != nil {
				got = append(got, c())
			}
		}
	default:
		got = append(got, msg)
	}
	assert.Contains(t, got, update.CoreEventMsg{Event: eventbus.ModeChangedEvent{Mode: mode.Lancer}})
}

func TestUpdate_BusClosedQuits(t *testing.T) {
	m, _ := newTestAppModel(t)
	_, cmd := m.Update(update.BusClosedMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestUpdate_RetryResetsBoundary(t *testing.T) {
	m, eb := newTestAppModel(t)
	m.boundary.Render("results", 80, func() string { panic("bad row") })
	require.True(t, m.boundary.Failed())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.False(t, m.boundary.Failed())
	assert.Equal(t, "Retrying", m.appModel.Status)

	// without a failed view ctrl+r asks the core for fresh data
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, eventbus.RefreshEvent{}, <-eb.UIToCore())
}
