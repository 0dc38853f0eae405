package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/config"
	"github.com/cyberforge/cyberforge/internal/core"
	"github.com/cyberforge/cyberforge/internal/logging"
	"github.com/cyberforge/cyberforge/internal/prefs"
)

// profileFlag selects a profile for one invocation without saving it.
var profileFlag string

// loadConfig loads the config and applies --profile.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if profileFlag != "" {
		if err := cfg.SelectProfile(profileFlag); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// cliLogger logs to stderr so stdout stays clean for results.
func cliLogger(cfg *config.Config, errOut io.Writer) *logging.Logger {
	logCfg := cfg.LogConfig()
	if logCfg.Level == "" {
		logCfg.Level = "warn"
	}
	return logging.NewWithWriter(errOut, &logCfg).WithComponent("cli")
}

// session bundles what a one-shot command needs.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	client *api.Client
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := cliLogger(cfg, cmd.ErrOrStderr())
	logging.SetDefault(logger)
	return &session{cfg: cfg, logger: logger, client: core.NewClient(cfg, logger)}, nil
}

func (s *session) prefs() (*prefs.Store, error) {
	return prefs.Open(s.cfg.Dir())
}

// signalContext is cancelled on interrupt so long scans and streams stop
// cleanly.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// promptConfirmator asks on the terminal before dangerous panels run.
type promptConfirmator struct {
	assumeYes bool
	out       io.Writer
}

func (p promptConfirmator) RequestConfirmation(operation, command string, dangerous bool) bool {
	if p.assumeYes {
		return true
	}
	if dangerous {
		fmt.Fprintf(p.out, "%s acts on remote hosts:\n  %s\n", operation, command)
	}
	prompt := promptui.Prompt{
		Label:     "Run " + operation,
		IsConfirm: true,
	}
	answer, err := prompt.Run()
	return err == nil && strings.EqualFold(strings.TrimSpace(answer), "y")
}
