package update

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/chat"
	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/models"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/internal/progress"
	"github.com/cyberforge/cyberforge/internal/toast"
)

func newTestModel(t *testing.T) (*models.AppModel, *eventbus.EventBus) {
	t.Helper()
	eb := eventbus.NewEventBus()
	t.Cleanup(eb.Close)
	m := models.NewAppModel(panels.NewBuiltinRegistry(), mode.Forge, true)
	return &m, eb
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func nextUIEvent(t *testing.T, eb *eventbus.EventBus) eventbus.UIEvent {
	t.Helper()
	select {
	case ev := <-eb.UIToCore():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event sent to core")
		return nil
	}
}

func assertNoUIEvent(t *testing.T, eb *eventbus.EventBus) {
	t.Helper()
	select {
	case ev := <-eb.UIToCore():
		t.Fatalf("unexpected event %T", ev)
	default:
	}
}

func TestEnter_SendsChatMessage(t *testing.T) {
	m, eb := newTestModel(t)
	m.MoveSection(-2)
	require.True(t, m.ChatActive())

	m.Input.SetValue("  what is CVE-2021-44228?  ")
	HandleKeyMsgWithEventBus(m, key(tea.KeyEnter), eb)

	assert.Equal(t, eventbus.SendMessageEvent{Message: "what is CVE-2021-44228?"}, nextUIEvent(t, eb))
	assert.Empty(t, m.Input.Value())
}

func TestEnter_IgnoredWhileStreaming(t *testing.T) {
	m, eb := newTestModel(t)
	m.MoveSection(-2)
	m.Chat.Phase = chat.PhaseStreaming
	m.Input.SetValue("again")

	HandleKeyMsgWithEventBus(m, key(tea.KeyEnter), eb)
	assertNoUIEvent(t, eb)
	assert.Equal(t, "again", m.Input.Value())

	HandleKeyMsgWithEventBus(m, key(tea.KeyEsc), eb)
	assert.Equal(t, eventbus.CancelStreamEvent{}, nextUIEvent(t, eb))
}

func TestEnter_RunsSelectedPanel(t *testing.T) {
	m, eb := newTestModel(t)
	m.MoveSection(1) // recon
	m.MovePanel(1)   // port scan
	require.Equal(t, "recon.ports", m.CurrentPanel().Name)

	m.Input.SetValue("10.0.0.5 ports=22,80")
	HandleKeyMsgWithEventBus(m, key(tea.KeyEnter), eb)

	assert.Equal(t, eventbus.RunPanelEvent{
		Panel: "recon.ports",
		Args:  panels.Args{"target": "10.0.0.5", "ports": "22,80"},
	}, nextUIEvent(t, eb))
	assert.True(t, m.Panel.Running)
	assert.Equal(t, "10.0.0.5 ports=22,80", m.Input.Value())

	// a second enter while the run is in flight is refused
	HandleKeyMsgWithEventBus(m, key(tea.KeyEnter), eb)
	assertNoUIEvent(t, eb)
}

func TestPanelResult_BuildsTable(t *testing.T) {
	m, eb := newTestModel(t)
	m.MoveSection(1)
	HandleKeyMsgWithEventBus(m, key(tea.KeyEnter), eb)
	nextUIEvent(t, eb)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.PanelStartedEvent{CallID: "c1", Panel: "recon.subdomains"}})
	assert.Equal(t, "c1", m.Panel.CallID)

	// a result from another call is ignored
	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.PanelResultEvent{Result: panels.Result{CallID: "old", Panel: "recon.subdomains"}}})
	assert.True(t, m.Panel.Running)

	doc := api.Document{"scan_id": "s-1", "results": []any{
		map[string]any{"subdomain": "b.example.com"},
		map[string]any{"subdomain": "a.example.com"},
	}}
	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.PanelResultEvent{Result: panels.Result{CallID: "c1", Panel: "recon.subdomains", Doc: doc}}})

	assert.False(t, m.Panel.Running)
	require.NotNil(t, m.Panel.Table)
	assert.Len(t, m.Panel.Table.Rows, 2)
	assert.Equal(t, "s-1", m.Panel.ScanID())

	HandleKeyMsgWithEventBus(m, key(tea.KeyCtrlS), eb)
	assert.Equal(t, "subdomain", m.Panel.Table.SortBy)
	assert.Equal(t, "a.example.com", m.Panel.Table.Rows[0]["subdomain"])

	HandleKeyMsgWithEventBus(m, key(tea.KeyCtrlD), eb)
	assert.True(t, m.Panel.Table.Desc)
	assert.Equal(t, "b.example.com", m.Panel.Table.Rows[0]["subdomain"])

	HandleKeyMsgWithEventBus(m, key(tea.KeyCtrlW), eb)
	assert.Equal(t, eventbus.WatchScanEvent{ScanID: "s-1"}, nextUIEvent(t, eb))
}

func TestPanelResult_Error(t *testing.T) {
	m, eb := newTestModel(t)
	m.MoveSection(1)
	HandleKeyMsgWithEventBus(m, key(tea.KeyEnter), eb)
	nextUIEvent(t, eb)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.PanelResultEvent{Result: panels.Result{
		CallID: "c1", Panel: "recon.subdomains", Err: errors.New("Invalid domain"),
	}}})
	assert.False(t, m.Panel.Running)
	assert.Nil(t, m.Panel.Table)
	assert.Equal(t, "Error: Invalid domain", m.Status)
}

func TestPaging(t *testing.T) {
	m, eb := newTestModel(t)
	m.Height = 23 // 3 rows per page
	rows := make([]any, 7)
	for i := range rows {
		rows[i] = map[string]any{"n": float64(i)}
	}
	m.Panel = models.PanelView{Panel: "x", Page: 1, Table: panels.NewTable(api.Document{"results": rows})}

	HandleKeyMsgWithEventBus(m, key(tea.KeyPgDown), eb)
	HandleKeyMsgWithEventBus(m, key(tea.KeyPgDown), eb)
	HandleKeyMsgWithEventBus(m, key(tea.KeyPgDown), eb)
	assert.Equal(t, 3, m.Panel.Page)

	HandleKeyMsgWithEventBus(m, key(tea.KeyPgUp), eb)
	assert.Equal(t, 2, m.Panel.Page)
}

func TestConfirmation(t *testing.T) {
	for _, tc := range []struct {
		key      tea.KeyMsg
		approved bool
	}{
		{runes("y"), true},
		{runes("n"), false},
		{key(tea.KeyEsc), false},
	} {
		t.Run(tc.key.String(), func(t *testing.T) {
			m, eb := newTestModel(t)
			HandleCoreEvent(m, CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "r1", Operation: "Seek", Command: "seek.seek cidr=10.0.0.0/24", Dangerous: true}})
			require.NotNil(t, m.PendingConfirmation)

			// other keys are swallowed while a confirmation is pending
			HandleKeyMsgWithEventBus(m, key(tea.KeyTab), eb)
			assert.Equal(t, 0, m.Section)

			HandleKeyMsgWithEventBus(m, tc.key, eb)
			assert.Nil(t, m.PendingConfirmation)
			assert.Equal(t, eventbus.ConfirmationResponseEvent{ID: "r1", Approved: tc.approved}, nextUIEvent(t, eb))
		})
	}
}

func TestNavigationAndMode(t *testing.T) {
	m, eb := newTestModel(t)

	HandleKeyMsgWithEventBus(m, key(tea.KeyShiftTab), eb)
	assert.Equal(t, mode.SectionSettings, m.CurrentSection().Key)
	HandleKeyMsgWithEventBus(m, key(tea.KeyTab), eb)
	assert.Equal(t, mode.SectionDashboard, m.CurrentSection().Key)

	HandleKeyMsgWithEventBus(m, key(tea.KeyTab), eb)
	HandleKeyMsgWithEventBus(m, key(tea.KeyCtrlN), eb)
	assert.Equal(t, 1, m.PanelIndex)
	HandleKeyMsgWithEventBus(m, key(tea.KeyCtrlP), eb)
	assert.Equal(t, 0, m.PanelIndex)

	HandleKeyMsgWithEventBus(m, key(tea.KeyCtrlT), eb)
	assert.Equal(t, eventbus.ToggleModeEvent{}, nextUIEvent(t, eb))

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.ModeChangedEvent{Mode: mode.Lancer}})
	assert.Equal(t, mode.Lancer, m.Mode)
	assert.Equal(t, mode.SectionRecon, m.CurrentSection().Key)
}

func TestTypingGoesToInput(t *testing.T) {
	m, eb := newTestModel(t)
	HandleKeyMsgWithEventBus(m, runes("e"), eb)
	HandleKeyMsgWithEventBus(m, runes("x"), eb)
	assert.Equal(t, "ex", m.Input.Value())
	assertNoUIEvent(t, eb)
}

func TestEsc_DismissesNewestToast(t *testing.T) {
	m, eb := newTestModel(t)
	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.ToastsUpdateEvent{Toasts: []toast.Toast{{ID: "old"}, {ID: "new"}}}})

	HandleKeyMsgWithEventBus(m, key(tea.KeyEsc), eb)
	assert.Equal(t, eventbus.DismissToastEvent{ID: "new"}, nextUIEvent(t, eb))
}

func TestCoreEvents_AmbientState(t *testing.T) {
	m, _ := newTestModel(t)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.StatsUpdateEvent{Stats: api.Document{"total_scans": float64(3)}}})
	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.StatsUpdateEvent{Err: errors.New("timeout")}})
	assert.Equal(t, api.Document{"total_scans": float64(3)}, m.Stats)
	assert.EqualError(t, m.StatsErr, "timeout")

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.HealthUpdateEvent{Health: api.Health{Status: "ok"}}})
	assert.True(t, m.HealthKnown)
	assert.NoError(t, m.HealthErr)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.ProgressUpdateEvent{ScanID: "abc", State: progress.State{Progress: 10, Connected: true}}})
	assert.Equal(t, "abc", m.ScanID)
	assert.Equal(t, 10.0, m.Progress.Progress)

	HandleCoreEvent(m, CoreEventMsg{Event: eventbus.ChatUpdateEvent{Snapshot: chat.Snapshot{
		Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
		Phase:    chat.PhaseStreaming,
	}}})
	assert.Equal(t, "Streaming", m.Status)
	assert.True(t, m.Busy())
}

func TestTick(t *testing.T) {
	m, _ := newTestModel(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.NotNil(t, HandleTickMsg(m, TickMsg(at)))
	assert.Equal(t, at, m.Now)
	assert.Equal(t, 0, m.LoadingDots)

	m.Panel.Running = true
	HandleTickMsg(m, TickMsg(at))
	assert.Equal(t, 1, m.LoadingDots)
}
