package update

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/models"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/ui/components"
)

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	key := keyMsg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	if req := appModel.PendingConfirmation; req != nil {
		switch key {
		case "y", "Y":
			respond(appModel, eb, req.ID, true)
		case "n", "N", "esc":
			respond(appModel, eb, req.ID, false)
		}
		return nil
	}

	switch key {
	case "tab":
		appModel.MoveSection(1)
	case "shift+tab":
		appModel.MoveSection(-1)
	case "ctrl+n":
		appModel.MovePanel(1)
	case "ctrl+p":
		appModel.MovePanel(-1)
	case "ctrl+t":
		send(appModel, eb, eventbus.ToggleModeEvent{})
	case "enter":
		submit(appModel, eb)
	case "esc":
		switch {
		case appModel.Chat.Phase.Busy():
			send(appModel, eb, eventbus.CancelStreamEvent{})
		case len(appModel.Toasts) > 0:
			newest := appModel.Toasts[len(appModel.Toasts)-1]
			send(appModel, eb, eventbus.DismissToastEvent{ID: newest.ID})
		default:
			appModel.Input.Reset()
		}
	case "ctrl+l":
		if appModel.ChatActive() {
			send(appModel, eb, eventbus.ClearChatEvent{})
		}
	case "ctrl+s":
		if t := appModel.Panel.Table; t != nil {
			t.Sort(t.NextSortColumn(), t.Desc)
			appModel.Panel.Page = 1
			appModel.Status = "Sorted by " + t.SortBy
		}
	case "ctrl+d":
		if t := appModel.Panel.Table; t != nil && t.SortBy != "" {
			t.Sort(t.SortBy, !t.Desc)
			appModel.Panel.Page = 1
		}
	case "pgdown", "pgup":
		if t := appModel.Panel.Table; t != nil && !appModel.ChatActive() {
			delta := 1
			if key == "pgup" {
				delta = -1
			}
			_, info := t.Page(appModel.Panel.Page+delta, appModel.PerPage())
			appModel.Panel.Page = info.Page
			return nil
		}
		var cmd tea.Cmd
		appModel.ChatView, cmd = appModel.ChatView.Update(keyMsg)
		return cmd
	case "ctrl+r":
		send(appModel, eb, eventbus.RefreshEvent{})
		appModel.Status = "Refreshing"
	case "ctrl+w":
		switch {
		case appModel.ScanID != "":
			send(appModel, eb, eventbus.WatchScanEvent{})
		case appModel.Panel.ScanID() != "":
			send(appModel, eb, eventbus.WatchScanEvent{ScanID: appModel.Panel.ScanID()})
		default:
			appModel.Status = "No scan to watch"
		}
	default:
		var cmd tea.Cmd
		appModel.Input, cmd = appModel.Input.Update(keyMsg)
		return cmd
	}
	return nil
}

// submit sends the input line to the assistant or runs the selected panel.
func submit(appModel *models.AppModel, eb *eventbus.EventBus) {
	line := strings.TrimSpace(appModel.Input.Value())

	if appModel.ChatActive() {
		if line == "" {
			return
		}
		if appModel.Chat.Phase.Busy() {
			appModel.Status = "Wait for the reply to finish or press esc"
			return
		}
		if send(appModel, eb, eventbus.SendMessageEvent{Message: line}) {
			appModel.Input.Reset()
		}
		return
	}

	p := appModel.CurrentPanel()
	if p == nil {
		send(appModel, eb, eventbus.RefreshEvent{})
		return
	}
	if appModel.Panel.Running {
		appModel.Status = p.Title + " is still running"
		return
	}
	if send(appModel, eb, eventbus.RunPanelEvent{Panel: p.Name, Args: panels.ParseInput(p, line)}) {
		appModel.Panel = models.PanelView{Panel: p.Name, Running: true, Page: 1}
		appModel.Status = "Running " + p.Title
	}
}

func respond(appModel *models.AppModel, eb *eventbus.EventBus, id string, approved bool) {
	appModel.PendingConfirmation = nil
	if send(appModel, eb, eventbus.ConfirmationResponseEvent{ID: id, Approved: approved}) && !approved {
		appModel.Status = "Declined"
	}
}

// send reports a bus failure in the status bar.
func send(appModel *models.AppModel, eb *eventbus.EventBus, event eventbus.UIEvent) bool {
	if err := eb.SendToCore(event); err != nil {
		appModel.Status = "Error: " + err.Error()
		return false
	}
	return true
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// BusClosedMsg tells the program the core is gone.
type BusClosedMsg struct{}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.ChatUpdateEvent:
		appModel.Chat = event.Snapshot
		switch {
		case event.Snapshot.Err != nil:
			appModel.Status = "Error: " + event.Snapshot.Err.Error()
		case event.Snapshot.Phase.Busy():
			appModel.Status = "Streaming"
		default:
			appModel.Status = "Ready"
		}
		RefreshChatView(appModel)

	case eventbus.ProgressUpdateEvent:
		appModel.ScanID = event.ScanID
		appModel.Progress = event.State

	case eventbus.ToastsUpdateEvent:
		appModel.Toasts = event.Toasts

	case eventbus.ModeChangedEvent:
		appModel.SetMode(event.Mode)
		RefreshChatView(appModel)

	case eventbus.PanelStartedEvent:
		if appModel.Panel.Panel == event.Panel && appModel.Panel.CallID == "" {
			appModel.Panel.CallID = event.CallID
		}

	case eventbus.PanelResultEvent:
		res := event.Result
		// results of a panel the user has navigated away from are dropped
		if appModel.Panel.Panel != res.Panel || (appModel.Panel.CallID != "" && appModel.Panel.CallID != res.CallID) {
			return nil
		}
		appModel.Panel.CallID = res.CallID
		appModel.Panel.Running = false
		appModel.Panel.Doc = res.Doc
		appModel.Panel.Err = res.Err
		appModel.Panel.Elapsed = res.Elapsed
		appModel.Panel.Page = 1
		appModel.Panel.Table = nil
		if res.Err != nil {
			appModel.Status = "Error: " + res.Err.Error()
			return nil
		}
		appModel.Panel.Table = panels.NewTable(res.Doc)
		appModel.Status = "Ready"

	case eventbus.StatsUpdateEvent:
		appModel.StatsErr = event.Err
		if event.Err == nil {
			appModel.Stats = event.Stats
		}

	case eventbus.HealthUpdateEvent:
		appModel.Health = event.Health
		appModel.HealthErr = event.Err
		appModel.HealthKnown = true

	case eventbus.ConfirmationRequestEvent:
		appModel.PendingConfirmation = &models.ConfirmationRequest{
			ID:        event.ID,
			Operation: event.Operation,
			Command:   event.Command,
			Dangerous: event.Dangerous,
		}
		appModel.Status = "Confirmation required"
	}

	return nil
}

// RefreshChatView re-renders the conversation into the viewport.
func RefreshChatView(appModel *models.AppModel) {
	appModel.ChatView.SetContent(components.RenderMessages(appModel.Chat, appModel.Mode, appModel.ChatView.Width))
	appModel.ChatView.GotoBottom()
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
	appModel.ChatView.Width = max(sizeMsg.Width-2, 10)
	appModel.ChatView.Height = max(sizeMsg.Height-14, 3)
	RefreshChatView(appModel)
}

func HandleTickMsg(appModel *models.AppModel, tick TickMsg) tea.Cmd {
	appModel.Now = time.Time(tick)
	// Only handle UI animations - loading dots
	if appModel.Busy() {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	}
	return TickCmd()
}
