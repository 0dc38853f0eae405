package eventbus

import (
	"errors"
	"sync"
	"time"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/chat"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/internal/progress"
	"github.com/cyberforge/cyberforge/internal/toast"
)

// UIEvent represents events sent from UI to Core
type UIEvent interface {
	UIEvent()
}

// CoreEvent represents events sent from Core to UI
type CoreEvent interface {
	CoreEvent()
}

// SendMessageEvent - UI requests core to send a chat message
type SendMessageEvent struct {
	Message string
}

func (e SendMessageEvent) UIEvent() {}

// ClearChatEvent - UI requests the conversation be wiped
type ClearChatEvent struct{}

func (e ClearChatEvent) UIEvent() {}

// CancelStreamEvent - UI aborts the in-flight chat reply
type CancelStreamEvent struct{}

func (e CancelStreamEvent) UIEvent() {}

// RunPanelEvent - UI asks core to run a panel against the backend
type RunPanelEvent struct {
	Panel string
	Args  panels.Args
}

func (e RunPanelEvent) UIEvent() {}

// ConfirmationResponseEvent - UI sends user's confirmation decision back to Core
type ConfirmationResponseEvent struct {
	ID       string // Must match the ID from ConfirmationRequestEvent
	Approved bool
}

func (e ConfirmationResponseEvent) UIEvent() {}

// ToggleModeEvent - UI flips between Forge and Lancer
type ToggleModeEvent struct{}

func (e ToggleModeEvent) UIEvent() {}

// WatchScanEvent - UI attaches the progress watcher to a scan; an empty ID
// detaches it.
type WatchScanEvent struct {
	ScanID string
}

func (e WatchScanEvent) UIEvent() {}

// DismissToastEvent - UI closes a toast early
type DismissToastEvent struct {
	ID string
}

func (e DismissToastEvent) UIEvent() {}

// RefreshEvent - UI asks for stats and health right now
type RefreshEvent struct{}

func (e RefreshEvent) UIEvent() {}

// ChatUpdateEvent - Core pushes a new chat snapshot
type ChatUpdateEvent struct {
	Snapshot chat.Snapshot
}

func (e ChatUpdateEvent) CoreEvent() {}

// ProgressUpdateEvent - Core pushes scan progress
type ProgressUpdateEvent struct {
	ScanID string
	State  progress.State
}

func (e ProgressUpdateEvent) CoreEvent() {}

// ToastsUpdateEvent - Core pushes the visible toasts, oldest first
type ToastsUpdateEvent struct {
	Toasts []toast.Toast
}

func (e ToastsUpdateEvent) CoreEvent() {}

// ModeChangedEvent - Core reports the active mode
type ModeChangedEvent struct {
	Mode mode.Mode
}

func (e ModeChangedEvent) CoreEvent() {}

// PanelStartedEvent - Core accepted a panel run
type PanelStartedEvent struct {
	CallID string
	Panel  string
}

func (e PanelStartedEvent) CoreEvent() {}

// PanelResultEvent - Core delivers a finished panel run
type PanelResultEvent struct {
	Result panels.Result
}

func (e PanelResultEvent) CoreEvent() {}

// StatsUpdateEvent - Core delivers dashboard statistics
type StatsUpdateEvent struct {
	Stats api.Document
	Err   error
}

func (e StatsUpdateEvent) CoreEvent() {}

// HealthUpdateEvent - Core delivers the backend health probe
type HealthUpdateEvent struct {
	Health api.Health
	Err    error
}

func (e HealthUpdateEvent) CoreEvent() {}

// ConfirmationRequestEvent - Core requests user confirmation for dangerous operations
type ConfirmationRequestEvent struct {
	ID        string
	Operation string
	Command   string
	Dangerous bool
}

func (e ConfirmationRequestEvent) CoreEvent() {}

// EventBusError represents errors in event processing
type EventBusError struct {
	Operation string
	Err       error
	Timestamp time.Time
}

func (e EventBusError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrCoreFull    = errors.New("UI to Core channel is full")
	ErrUIFull      = errors.New("Core to UI channel is full")
	ErrClosed      = errors.New("event bus is closed")
)

// CircuitBreakerState represents the state of circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker implements circuit breaker pattern
type CircuitBreaker struct {
	mu              sync.Mutex
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
	now             func() time.Time
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
	}
	return cb.state == CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = cb.now()

	// A failure while half-open trips the breaker again straight away.
	if cb.failureCount >= cb.maxFailures || cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// uiSendWait bounds how long the core blocks on a full UI channel.
const uiSendWait = 100 * time.Millisecond

// EventBus handles communication between UI and Core with circuit breaker
type EventBus struct {
	uiToCore       chan UIEvent
	coreToUI       chan CoreEvent
	circuitBreaker *CircuitBreaker

	mu            sync.RWMutex
	errorCallback func(EventBusError)
	closed        bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		uiToCore:       make(chan UIEvent, 100),
		coreToUI:       make(chan CoreEvent, 256),
		circuitBreaker: NewCircuitBreaker(5, 30*time.Second),
	}
}

func (eb *EventBus) SetErrorCallback(callback func(EventBusError)) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.errorCallback = callback
}

func (eb *EventBus) reportError(operation string, err error) {
	eb.circuitBreaker.RecordFailure()
	eb.notify(operation, err)
}

// notify reports err without counting it against the breaker.
func (eb *EventBus) notify(operation string, err error) {
	eb.mu.RLock()
	callback := eb.errorCallback
	eb.mu.RUnlock()
	if callback != nil {
		callback(EventBusError{Operation: operation, Err: err, Timestamp: time.Now()})
	}
}

func (eb *EventBus) SendToCore(event UIEvent) error {
	if eb.circuitBreaker.IsOpen() {
		eb.notify("SendToCore", ErrCircuitOpen)
		return ErrCircuitOpen
	}
	if err := eb.trySendToCore(event); err != nil {
		if err != ErrClosed {
			eb.reportError("SendToCore", err)
		}
		return err
	}
	eb.circuitBreaker.RecordSuccess()
	return nil
}

func (eb *EventBus) trySendToCore(event UIEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}
	select {
	case eb.uiToCore <- event:
		return nil
	default:
		return ErrCoreFull
	}
}

// SendToUI delivers event to the UI. Core events arrive in bursts while a
// reply streams, so a full channel gets a short grace period before the
// send counts as a failure.
func (eb *EventBus) SendToUI(event CoreEvent) error {
	if eb.circuitBreaker.IsOpen() {
		eb.notify("SendToUI", ErrCircuitOpen)
		return ErrCircuitOpen
	}
	if err := eb.trySendToUI(event); err != nil {
		if err != ErrClosed {
			eb.reportError("SendToUI", err)
		}
		return err
	}
	eb.circuitBreaker.RecordSuccess()
	return nil
}

func (eb *EventBus) trySendToUI(event CoreEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	select {
	case eb.coreToUI <- event:
		return nil
	default:
	}

	timer := time.NewTimer(uiSendWait)
	defer timer.Stop()
	select {
	case eb.coreToUI <- event:
		return nil
	case <-timer.C:
		return ErrUIFull
	}
}

func (eb *EventBus) UIToCore() <-chan UIEvent {
	return eb.uiToCore
}

func (eb *EventBus) CoreToUI() <-chan CoreEvent {
	return eb.coreToUI
}

func (eb *EventBus) GetCircuitBreakerState() CircuitBreakerState {
	return eb.circuitBreaker.State()
}

// Close shuts both channels. Later sends return ErrClosed.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.uiToCore)
	close(eb.coreToUI)
}
