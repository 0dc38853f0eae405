package core

import (
	"sync"
	"time"

	"github.com/cyberforge/cyberforge/internal/api"
)

// HealthStatus is the dashboard's view of the backend.
type HealthStatus int

const (
	HealthUnknown HealthStatus = iota
	HealthOK
	HealthDown
)

func (h HealthStatus) String() string {
	switch h {
	case HealthOK:
		return "online"
	case HealthDown:
		return "offline"
	default:
		return "unknown"
	}
}

// RunningPanel is a panel call that has not returned yet.
type RunningPanel struct {
	CallID  string
	Panel   string
	Started time.Time
}

// DashboardState holds what the core knows beyond the chat session: the
// last stats and health probes and the panel calls in flight.
type DashboardState struct {
	mu sync.RWMutex

	stats     api.Document
	statsErr  error
	statsAt   time.Time
	health    api.Health
	healthErr error
	status    HealthStatus

	running map[string]RunningPanel
}

func NewDashboardState() *DashboardState {
	return &DashboardState{running: make(map[string]RunningPanel)}
}

// SetStats records a stats refresh. A failed refresh keeps the previous
// numbers on screen.
func (ds *DashboardState) SetStats(stats api.Document, err error, at time.Time) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.statsErr = err
	if err == nil {
		ds.stats = stats
		ds.statsAt = at
	}
}

func (ds *DashboardState) Stats() (api.Document, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.stats, ds.statsErr
}

// SetHealth records a probe and returns the previous and new status.
func (ds *DashboardState) SetHealth(h api.Health, err error) (prev, next HealthStatus) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	prev = ds.status
	ds.health, ds.healthErr = h, err
	if err != nil {
		ds.status = HealthDown
	} else {
		ds.status = HealthOK
	}
	return prev, ds.status
}

func (ds *DashboardState) Health() (api.Health, HealthStatus, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.health, ds.status, ds.healthErr
}

// StartPanel tracks a call until FinishPanel.
func (ds *DashboardState) StartPanel(callID, panel string, at time.Time) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.running[callID] = RunningPanel{CallID: callID, Panel: panel, Started: at}
}

// FinishPanel stops tracking callID and reports whether it was running.
func (ds *DashboardState) FinishPanel(callID string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	_, ok := ds.running[callID]
	delete(ds.running, callID)
	return ok
}

func (ds *DashboardState) Running() []RunningPanel {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	out := make([]RunningPanel, 0, len(ds.running))
	for _, r := range ds.running {
		out = append(out, r)
	}
	return out
}
