package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/update"
)

func TestListenForCoreEvents(t *testing.T) {
	eb := eventbus.NewEventBus()
	ed := NewEventDispatcher(eb)

	require.NoError(t, eb.SendToUI(eventbus.ModeChangedEvent{Mode: "lancer"}))
	msg := ed.ListenForCoreEvents()()
	assert.Equal(t, update.CoreEventMsg{Event: eventbus.ModeChangedEvent{Mode: "lancer"}}, msg)

	eb.Close()
	assert.Equal(t, update.BusClosedMsg{}, ed.ListenForCoreEvents()())
}

func TestListenForCoreEvents_Stop(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	ed := NewEventDispatcher(eb)
	ed.Stop()

	assert.Equal(t, update.BusClosedMsg{}, ed.ListenForCoreEvents()())
}

func TestSend(t *testing.T) {
	eb := eventbus.NewEventBus()
	defer eb.Close()
	ed := NewEventDispatcher(eb)

	require.NoError(t, ed.Send(eventbus.WatchScanEvent{ScanID: "abc"}))
	assert.Equal(t, eventbus.WatchScanEvent{ScanID: "abc"}, <-eb.UIToCore())
}
