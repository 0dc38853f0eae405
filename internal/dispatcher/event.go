package dispatcher

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/update"
)

// EventDispatcher handles routing events between core and UI
type EventDispatcher struct {
	eventBus *eventbus.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewEventDispatcher(eventBus *eventbus.EventBus) *EventDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventDispatcher{
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (ed *EventDispatcher) Stop() {
	ed.cancel()
}

func (ed *EventDispatcher) GetEventBus() *eventbus.EventBus {
	return ed.eventBus
}

// ListenForCoreEvents waits for the next core event and hands it to Bubble
// Tea. The model re-issues the command after every CoreEventMsg.
func (ed *EventDispatcher) ListenForCoreEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ed.ctx.Done():
			return update.BusClosedMsg{}
		case event, ok := <-ed.eventBus.CoreToUI():
			if !ok {
				return update.BusClosedMsg{}
			}
			return update.CoreEventMsg{Event: event}
		}
	}
}

// Send forwards a UI event to the core.
func (ed *EventDispatcher) Send(event eventbus.UIEvent) error {
	return ed.eventBus.SendToCore(event)
}
