package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/chat"
	"github.com/cyberforge/cyberforge/internal/config"
	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/logging"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/internal/poller"
	"github.com/cyberforge/cyberforge/internal/prefs"
	"github.com/cyberforge/cyberforge/internal/progress"
	"github.com/cyberforge/cyberforge/internal/toast"
)

// toastTick is how often expired toasts are swept.
const toastTick = 250 * time.Millisecond

// NewClient builds the backend client for the active profile.
func NewClient(cfg *config.Config, logger *logging.Logger) *api.Client {
	p := cfg.Current()
	opts := []api.Option{
		api.WithTimeout(p.RequestTimeout()),
		api.WithLogger(logger.WithComponent("api")),
	}
	if p.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(p.RateLimit))
	}
	return api.New(cfg.GetAPIURL(), opts...)
}

// NewTransport picks the chat transport configured for the active profile.
func NewTransport(cfg *config.Config, client *api.Client) chat.Transport {
	p := cfg.Current()
	if p.AssistantTransport() == config.AssistantDirect {
		return chat.NewOpenAITransport(p.Assistant.APIKey, p.Assistant.BaseURL, p.Assistant.Model)
	}
	return chat.NewBackendTransport(client)
}

// DashboardService is the core goroutine behind the dashboard. It owns the
// chat session, the progress watcher, the toast queue, the mode provider,
// the pollers and the panel registry, and talks to the UI only through the
// event bus.
type DashboardService struct {
	config   *config.Config
	prefs    *prefs.Store
	eventBus *eventbus.EventBus
	logger   *logging.Logger

	client   *api.Client
	session  *chat.Session
	watcher  *progress.Watcher
	toasts   *toast.Queue
	modes    *mode.Provider
	registry *panels.Registry
	state    *DashboardState

	transport   chat.Transport
	watcherOpts []progress.Option
	statsEvery  time.Duration
	healthEvery time.Duration
	now         func() time.Time

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopPollers []func()
	stopOnce    sync.Once

	pendingConfirms map[string]chan bool // Track pending confirmations
	pendingMu       sync.RWMutex         // Protect pendingConfirms map
	lastStatus      string
}

// Option configures a DashboardService.
type Option func(*DashboardService)

// WithClient replaces the backend client built from the profile.
func WithClient(c *api.Client) Option {
	return func(cs *DashboardService) { cs.client = c }
}

// WithTransport replaces the chat transport chosen by the profile.
func WithTransport(t chat.Transport) Option {
	return func(cs *DashboardService) { cs.transport = t }
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(cs *DashboardService) { cs.logger = l }
}

// WithIntervals overrides the stats and health poll periods.
func WithIntervals(stats, health time.Duration) Option {
	return func(cs *DashboardService) {
		cs.statsEvery = stats
		cs.healthEvery = health
	}
}

// WithWatcherOptions passes options through to the progress watcher.
func WithWatcherOptions(opts ...progress.Option) Option {
	return func(cs *DashboardService) { cs.watcherOpts = append(cs.watcherOpts, opts...) }
}

// WithClock replaces the wall clock used for toasts and timestamps.
func WithClock(now func() time.Time) Option {
	return func(cs *DashboardService) { cs.now = now }
}

// NewDashboardService wires the core together. Nothing runs until Start.
func NewDashboardService(cfg *config.Config, store *prefs.Store, eb *eventbus.EventBus, opts ...Option) *DashboardService {
	ctx, cancel := context.WithCancel(context.Background())
	cs := &DashboardService{
		config:          cfg,
		prefs:           store,
		eventBus:        eb,
		statsEvery:      poller.StatsInterval,
		healthEvery:     poller.HealthInterval,
		now:             time.Now,
		ctx:             ctx,
		cancel:          cancel,
		pendingConfirms: make(map[string]chan bool),
		state:           NewDashboardState(),
	}
	for _, opt := range opts {
		opt(cs)
	}
	if cs.logger == nil {
		cs.logger = logging.Default()
	}
	base := cs.logger
	cs.logger = base.WithComponent("core")
	if cs.client == nil {
		cs.client = NewClient(cfg, base)
	}
	if cs.transport == nil {
		cs.transport = NewTransport(cfg, cs.client)
	}

	cs.session = chat.NewSession(cs.transport, chat.WithOnUpdate(cs.pushChat))
	cs.toasts = toast.NewQueue(cs.now)
	cs.modes = mode.NewProvider(store)
	cs.modes.Subscribe(cs.modeChanged)
	cs.watcher = progress.NewWatcher(cfg.GetWSURL(), append(cs.watcherOpts, progress.WithOnUpdate(cs.pushProgress))...)

	cs.registry = panels.NewBuiltinRegistry()
	cs.registry.SetConfirmator(cs)

	return cs
}

// Start pushes the initial state and runs the core logic in goroutines.
func (cs *DashboardService) Start() {
	cs.pushInitialState()

	cs.stopPollers = append(cs.stopPollers,
		poller.Start(cs.ctx, cs.statsEvery, cs.refreshStats),
		poller.Start(cs.ctx, cs.healthEvery, cs.refreshHealth),
		poller.Start(cs.ctx, toastTick, cs.expireToasts),
	)

	cs.wg.Add(1)
	go cs.eventLoop()
}

// Stop cancels everything the service started and waits for it.
func (cs *DashboardService) Stop() {
	cs.stopOnce.Do(func() {
		cs.cancel()
		cs.session.Cancel()
		for _, stop := range cs.stopPollers {
			stop()
		}
		cs.wg.Wait()
		cs.watcher.Stop()
	})
}

// Client exposes the backend client, mainly for commands sharing the core.
func (cs *DashboardService) Client() *api.Client {
	return cs.client
}

// Registry exposes the panel registry.
func (cs *DashboardService) Registry() *panels.Registry {
	return cs.registry
}

// Mode returns the active mode.
func (cs *DashboardService) Mode() mode.Mode {
	return cs.modes.Current()
}

// SetupComplete reports whether the onboarding wizard has run.
func (cs *DashboardService) SetupComplete() bool {
	return cs.prefs.GetBool(prefs.KeySetupComplete, false)
}

func (cs *DashboardService) eventLoop() {
	defer cs.wg.Done()
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *DashboardService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		cs.goTracked(func() { cs.sendMessage(e.Message) })
	case eventbus.ClearChatEvent:
		cs.session.Clear()
	case eventbus.CancelStreamEvent:
		cs.session.Cancel()
	case eventbus.RunPanelEvent:
		cs.runPanel(e.Panel, e.Args)
	case eventbus.ConfirmationResponseEvent:
		cs.handleConfirmationResponse(e)
	case eventbus.ToggleModeEvent:
		if _, err := cs.modes.Toggle(); err != nil {
			cs.logger.Warn("mode toggle", "error", err)
		}
	case eventbus.WatchScanEvent:
		cs.watcher.Watch(strings.TrimSpace(e.ScanID))
	case eventbus.DismissToastEvent:
		if cs.toasts.Dismiss(e.ID) {
			cs.pushToasts()
		}
	case eventbus.RefreshEvent:
		cs.goTracked(func() {
			cs.refreshStats(cs.ctx)
			cs.refreshHealth(cs.ctx)
		})
	}
}

func (cs *DashboardService) goTracked(fn func()) {
	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		fn()
	}()
}

func (cs *DashboardService) sendMessage(content string) {
	if err := cs.session.Send(cs.ctx, content); err != nil {
		cs.logger.Warn("chat send failed", "error", err)
		cs.notify(toast.Error, err.Error())
	}
}

func (cs *DashboardService) runPanel(name string, args panels.Args) {
	call := panels.Call{ID: uuid.NewString(), Panel: name, Args: args}
	cs.state.StartPanel(call.ID, name, cs.now())
	cs.send(eventbus.PanelStartedEvent{CallID: call.ID, Panel: name})
	cs.logger.Scan("panel started", name, "call_id", call.ID)

	resultChan := make(chan panels.Result, 1)
	cs.registry.ExecuteAsync(cs.ctx, cs.client, call, resultChan)
	cs.goTracked(func() { cs.handlePanelResult(resultChan) })
}

func (cs *DashboardService) handlePanelResult(resultChan <-chan panels.Result) {
	result := <-resultChan
	cs.state.FinishPanel(result.CallID)

	switch {
	case result.Err == nil:
		cs.logger.Scan("panel finished", result.Panel, "call_id", result.CallID, "elapsed_ms", result.Elapsed.Milliseconds())
	case errors.Is(result.Err, context.Canceled):
		return
	default:
		cs.logger.Scan("panel failed", result.Panel, "call_id", result.CallID, "error", result.Err)
	}

	cs.send(eventbus.PanelResultEvent{Result: result})

	switch {
	case errors.Is(result.Err, panels.ErrDeclined):
		cs.notify(toast.Warning, "Cancelled "+result.Panel)
	case result.Err != nil:
		cs.notify(toast.Error, result.Err.Error())
	default:
		cs.notify(toast.Success, fmt.Sprintf("%s finished in %s", result.Panel, result.Elapsed.Round(time.Millisecond)))
		if scanID := result.Doc.String("scan_id"); scanID != "" {
			cs.watcher.Watch(scanID)
		}
	}
}

func (cs *DashboardService) refreshStats(ctx context.Context) {
	stats, err := cs.client.DashboardStats(ctx)
	if ctx.Err() != nil {
		return
	}
	cs.state.SetStats(stats, err, cs.now())
	cs.send(eventbus.StatsUpdateEvent{Stats: stats, Err: err})
}

func (cs *DashboardService) refreshHealth(ctx context.Context) {
	h, err := cs.client.Health(ctx)
	if ctx.Err() != nil {
		return
	}
	prev, next := cs.state.SetHealth(h, err)
	cs.send(eventbus.HealthUpdateEvent{Health: h, Err: err})

	switch {
	case prev == next:
	case next == HealthDown:
		cs.notify(toast.Error, "Backend unreachable: "+err.Error())
	case prev == HealthDown:
		cs.notify(toast.Success, "Backend connection restored")
	}
}

func (cs *DashboardService) expireToasts(context.Context) {
	if cs.toasts.Expire() > 0 {
		cs.pushToasts()
	}
}

func (cs *DashboardService) notify(typ toast.Type, message string) {
	cs.toasts.Add(message, typ, 0)
	cs.pushToasts()
}

func (cs *DashboardService) pushInitialState() {
	cs.send(eventbus.ModeChangedEvent{Mode: cs.modes.Current()})
	cs.send(eventbus.ChatUpdateEvent{Snapshot: cs.session.Snapshot()})
	cs.send(eventbus.ProgressUpdateEvent{State: cs.watcher.State()})

	cs.toasts.Add(fmt.Sprintf("Profile %s: %s", cs.config.ActiveProfile, cs.client.BaseURL()), toast.Info, 0)
	if !cs.SetupComplete() {
		cs.toasts.Add("Setup incomplete: run `cyberforge setup`", toast.Warning, 10*time.Second)
	}
	cs.pushToasts()
}

func (cs *DashboardService) pushChat(s chat.Snapshot) {
	cs.send(eventbus.ChatUpdateEvent{Snapshot: s})
}

// pushProgress runs under the watcher's lock, which also guards lastStatus.
func (cs *DashboardService) pushProgress(scanID string, s progress.State) {
	cs.send(eventbus.ProgressUpdateEvent{ScanID: scanID, State: s})

	if s.Status != cs.lastStatus && progress.Finished(s.Status) {
		typ := toast.Success
		if s.Status != progress.StatusCompleted {
			typ = toast.Error
		}
		cs.notify(typ, fmt.Sprintf("Scan %s %s", scanID, s.Status))
	}
	cs.lastStatus = s.Status
}

func (cs *DashboardService) pushToasts() {
	cs.send(eventbus.ToastsUpdateEvent{Toasts: cs.toasts.List()})
}

func (cs *DashboardService) modeChanged(m mode.Mode) {
	cs.send(eventbus.ModeChangedEvent{Mode: m})
	cs.notify(toast.Info, "Switched to "+m.Title())
}

func (cs *DashboardService) send(event eventbus.CoreEvent) {
	if err := cs.eventBus.SendToUI(event); err != nil && !errors.Is(err, eventbus.ErrClosed) {
		cs.logger.Warn("dropping core event", "event", fmt.Sprintf("%T", event), "error", err)
	}
}

// requestUserConfirmation sends a confirmation request to the UI and waits for response
func (cs *DashboardService) requestUserConfirmation(operation, command string, dangerous bool) bool {
	id := uuid.NewString()
	responseChan := make(chan bool, 1)

	cs.pendingMu.Lock()
	cs.pendingConfirms[id] = responseChan
	cs.pendingMu.Unlock()

	defer func() {
		cs.pendingMu.Lock()
		delete(cs.pendingConfirms, id)
		cs.pendingMu.Unlock()
	}()

	request := eventbus.ConfirmationRequestEvent{
		ID:        id,
		Operation: operation,
		Command:   command,
		Dangerous: dangerous,
	}
	if err := cs.eventBus.SendToUI(request); err != nil {
		return false
	}

	select {
	case approved := <-responseChan:
		return approved
	case <-cs.ctx.Done():
		return false
	}
}

// handleConfirmationResponse handles confirmation responses from the UI
func (cs *DashboardService) handleConfirmationResponse(response eventbus.ConfirmationResponseEvent) {
	cs.pendingMu.RLock()
	responseChan, exists := cs.pendingConfirms[response.ID]
	cs.pendingMu.RUnlock()

	if exists {
		select {
		case responseChan <- response.Approved:
		default:
		}
	}
}

// RequestConfirmation implements the panels.Confirmator interface
func (cs *DashboardService) RequestConfirmation(operation, command string, dangerous bool) bool {
	return cs.requestUserConfirmation(operation, command, dangerous)
}
