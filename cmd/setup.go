package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/core"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/prefs"
)

// KeyServices are the third-party services the backend keeps API keys for.
var KeyServices = []string{"shodan", "virustotal", "hibp", "abuseipdb", "otx", "openai", "anthropic"}

const doneItem = "done"

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-run wizard: mode, backend URL and API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		store, err := s.prefs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		modeSelect := promptui.Select{
			Label: "Dashboard mode",
			Items: []string{
				"forge  - defensive: recon, vulnerabilities, threat intel, logs",
				"lancer - offensive: adds OSINT and Seek & Enter",
			},
		}
		idx, _, err := modeSelect.Run()
		if err != nil {
			return fmt.Errorf("selection failed: %w", err)
		}
		chosen := mode.Forge
		if idx == 1 {
			chosen = mode.Lancer
		}
		if err := mode.NewProvider(store).Set(chosen); err != nil {
			return err
		}

		urlPrompt := promptui.Prompt{
			Label:    "Backend API URL",
			Default:  s.cfg.GetAPIURL(),
			Validate: validURL("http", "https"),
		}
		apiURL, err := urlPrompt.Run()
		if err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		profile := s.cfg.Profiles[s.cfg.ActiveProfile]
		if profile.APIURL != apiURL {
			profile.APIURL = strings.TrimRight(apiURL, "/")
			profile.WSURL = ""
			s.cfg.Profiles[s.cfg.ActiveProfile] = profile
			if err := s.cfg.Save(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			if err := s.cfg.SelectProfile(s.cfg.ActiveProfile); err != nil {
				return err
			}
			s.client = core.NewClient(s.cfg, s.logger)
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		h, err := s.client.Health(ctx)
		if err != nil {
			fmt.Fprintf(out, "Backend not reachable (%v); API keys can be added later with \"cyberforge settings keys set\".\n", err)
			return finishSetup(store, out)
		}
		fmt.Fprintf(out, "Backend %s is %s (version %s)\n", s.client.BaseURL(), h.Status, h.Version)

		if err := promptKeys(ctx, s, out); err != nil {
			return err
		}
		return finishSetup(store, out)
	},
}

// promptKeys stores API keys until the user picks done.
func promptKeys(ctx context.Context, s *session, out io.Writer) error {
	for {
		serviceSelect := promptui.Select{
			Label: "Store an API key",
			Items: append(append([]string(nil), KeyServices...), doneItem),
		}
		_, service, err := serviceSelect.Run()
		if err != nil {
			return fmt.Errorf("selection failed: %w", err)
		}
		if service == doneItem {
			return nil
		}

		keyPrompt := promptui.Prompt{
			Label:    service + " API key",
			Mask:     '*',
			Validate: required,
		}
		key, err := keyPrompt.Run()
		if err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		if err := s.client.Settings.StoreKey(ctx, service, strings.TrimSpace(key)); err != nil {
			fmt.Fprintf(out, "Could not store %s key: %v\n", service, err)
			continue
		}
		fmt.Fprintf(out, "Stored %s key\n", service)
	}
}

func finishSetup(store *prefs.Store, out io.Writer) error {
	if err := store.SetBool(prefs.KeySetupComplete, true); err != nil {
		return fmt.Errorf("save setup state: %w", err)
	}
	fmt.Fprintln(out, "Setup complete. Run \"cyberforge\" to open the dashboard.")
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
