// Package progress follows a running scan over the backend's WebSocket
// progress channel and keeps a reconnecting view of its state.
package progress

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyberforge/cyberforge/internal/jsonutil"
	"github.com/cyberforge/cyberforge/internal/logging"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultMaxAttempts    = 5

	StatusIdle      = "idle"
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusFailed    = "failed"
)

// State is the last known progress of the watched scan.
type State struct {
	Progress    float64 `json:"progress"`
	Status      string  `json:"status"`
	CurrentTask string  `json:"current_task"`
	Connected   bool    `json:"connected"`
}

// Idle is the state with no scan attached.
func Idle() State {
	return State{Status: StatusIdle}
}

// update is a progress message; absent fields leave state untouched.
type update struct {
	Progress    *float64 `json:"progress"`
	Status      *string  `json:"status"`
	CurrentTask *string  `json:"current_task"`
}

// Watcher holds at most one progress socket at a time.
type Watcher struct {
	base        string
	dialer      *websocket.Dialer
	delay       time.Duration
	maxAttempts int
	onUpdate    func(scanID string, s State)
	logger      *logging.Logger

	// watchMu serializes Watch so teardown and startup never interleave.
	watchMu sync.Mutex

	mu       sync.Mutex
	state    State
	scanID   string
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithReconnectDelay sets the fixed wait between reconnects.
func WithReconnectDelay(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

// WithMaxAttempts caps consecutive reconnects without a successful open.
func WithMaxAttempts(n int) Option {
	return func(w *Watcher) { w.maxAttempts = n }
}

// WithOnUpdate receives every state change along with the scan it belongs
// to. fn runs with the watcher locked and must not call back into it.
func WithOnUpdate(fn func(scanID string, s State)) Option {
	return func(w *Watcher) { w.onUpdate = fn }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(w *Watcher) { w.dialer = d }
}

// NewWatcher creates an idle watcher for the WebSocket root wsBase, e.g.
// ws://localhost:8008.
func NewWatcher(wsBase string, opts ...Option) *Watcher {
	w := &Watcher{
		base: strings.TrimRight(wsBase, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		delay:       DefaultReconnectDelay,
		maxAttempts: DefaultMaxAttempts,
		logger:      logging.Default().WithComponent("progress"),
		state:       Idle(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// URL returns the progress endpoint for scanID.
func (w *Watcher) URL(scanID string) string {
	return w.base + "/ws/scan/" + url.PathEscape(scanID)
}

// State returns the current progress state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ScanID returns the scan being watched, or "".
func (w *Watcher) ScanID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scanID
}

// Attempts returns the consecutive reconnect count.
func (w *Watcher) Attempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

// Watch switches to scanID. The previous socket and any pending reconnect
// are torn down first. An empty id leaves the watcher idle.
func (w *Watcher) Watch(scanID string) {
	w.watchMu.Lock()
	defer w.watchMu.Unlock()

	w.teardown()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.scanID = scanID
	w.attempts = 0
	w.state = Idle()
	w.publishLocked()

	if scanID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.run(ctx, w.URL(scanID), done)
}

// Finished reports whether status is one the backend sends last.
func Finished(status string) bool {
	switch status {
	case StatusCompleted, StatusError, StatusFailed:
		return true
	}
	return false
}

// Done is closed when the current watch ends: the socket was torn down or
// reconnects ran out. It is nil while idle.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// Stop closes the socket and resets to idle.
func (w *Watcher) Stop() {
	w.Watch("")
}

func (w *Watcher) teardown() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (w *Watcher) run(ctx context.Context, target string, done chan struct{}) {
	defer close(done)

	for {
		conn, _, err := w.dialer.DialContext(ctx, target, nil)
		if err == nil {
			w.opened()
			w.read(ctx, conn)
		} else if ctx.Err() == nil {
			w.logger.Debug("progress dial failed", "url", target, "error", err)
		}

		if ctx.Err() != nil {
			return
		}
		if !w.closed() {
			w.logger.Warn("progress reconnects exhausted", "url", target, "attempts", w.maxAttempts)
			return
		}

		timer := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// read consumes messages until the socket closes or ctx is cancelled.
func (w *Watcher) read(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var u update
		if err := jsonutil.Unmarshal(data, &u); err != nil {
			w.logger.Debug("ignoring progress message", "error", err)
			continue
		}
		w.apply(ctx, u)
	}
}

func (w *Watcher) opened() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts = 0
	w.state.Connected = true
	w.publishLocked()
}

func (w *Watcher) apply(ctx context.Context, u update) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if u.Progress != nil {
		w.state.Progress = *u.Progress
	}
	if u.Status != nil {
		w.state.Status = *u.Status
	}
	if u.CurrentTask != nil {
		w.state.CurrentTask = *u.CurrentTask
	}
	w.publishLocked()
}

// closed marks the socket down and reports whether another attempt is due.
func (w *Watcher) closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Connected = false
	w.publishLocked()
	if w.attempts >= w.maxAttempts {
		return false
	}
	w.attempts++
	return true
}

func (w *Watcher) publishLocked() {
	if w.onUpdate != nil {
		w.onUpdate(w.scanID, w.state)
	}
}
