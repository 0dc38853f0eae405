package app

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cyberforge/cyberforge/internal/config"
	"github.com/cyberforge/cyberforge/internal/core"
	"github.com/cyberforge/cyberforge/internal/dispatcher"
	"github.com/cyberforge/cyberforge/internal/eventbus"
	"github.com/cyberforge/cyberforge/internal/logging"
	"github.com/cyberforge/cyberforge/internal/models"
	"github.com/cyberforge/cyberforge/internal/prefs"
	"github.com/cyberforge/cyberforge/ui/components"
)

// LogFileName is the dashboard log inside the config directory. The TUI owns
// the terminal, so nothing is logged to stderr while it runs.
const LogFileName = "cyberforge.log"

// Application manages the complete application lifecycle
type Application struct {
	config     *config.Config
	logger     *logging.Logger
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.DashboardService
	model      *AppModel
}

func NewApplication() (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the dashboard for an already loaded config.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logCfg := cfg.LogConfig()
	logCfg.Output = filepath.Join(cfg.Dir(), LogFileName)
	logger := logging.NewLogger(&logCfg)
	logging.SetDefault(logger)

	store, err := prefs.Open(cfg.Dir())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn("event bus", "operation", e.Operation, "error", e.Err)
	})
	disp := dispatcher.NewEventDispatcher(eb)

	service := core.NewDashboardService(cfg, store, eb, core.WithLogger(logger))

	model := &AppModel{
		appModel:   models.NewAppModel(service.Registry(), service.Mode(), service.SetupComplete()),
		dispatcher: disp,
		boundary:   components.NewBoundary(logger.WithComponent("ui")),
	}

	return &Application{
		config:     cfg,
		logger:     logger,
		eventBus:   eb,
		dispatcher: disp,
		service:    service,
		model:      model,
	}, nil
}

func (app *Application) Start() error {
	app.logger.Info("dashboard starting", "profile", app.config.ActiveProfile, "api_url", app.config.GetAPIURL())
	app.service.Start()

	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
	app.logger.Info("dashboard stopped")
	app.logger.Close()
}
