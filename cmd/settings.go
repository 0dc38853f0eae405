package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage backend API keys and application settings",
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List stored API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "settings.keys", "", nil)
	},
}

var keysStatusCmd = &cobra.Command{
	Use:   "status <service>",
	Short: "Check whether a service's key is configured",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "settings.key-status", args[0], nil)
	},
}

var keysSetCmd = &cobra.Command{
	Use:       "set <service>",
	Short:     "Store an API key (prompted, never echoed)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: KeyServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		keyPrompt := promptui.Prompt{
			Label:    args[0] + " API key",
			Mask:     '*',
			Validate: required,
		}
		key, err := keyPrompt.Run()
		if err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()
		if err := s.client.Settings.StoreKey(ctx, args[0], strings.TrimSpace(key)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key\n", args[0])
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <service>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()
		if err := s.client.Settings.DeleteKey(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s key\n", args[0])
		return nil
	},
}

var appSettingsCmd = &cobra.Command{
	Use:   "app [key=value...]",
	Short: "Show application settings, or change them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runPanel(cmd, "settings.app", "", nil)
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()

		for _, pair := range args {
			key, raw, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return fmt.Errorf("expected key=value, got %q", pair)
			}
			if _, err := s.client.Settings.UpdateApp(ctx, strings.TrimSpace(key), settingValue(raw)); err != nil {
				return fmt.Errorf("update %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, raw)
		}
		return nil
	},
}

// settingValue sends booleans and numbers with their JSON type.
func settingValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

func init() {
	addOutputFlags(keysCmd)
	addOutputFlags(keysStatusCmd)
	addOutputFlags(appSettingsCmd)

	keysCmd.AddCommand(keysStatusCmd, keysSetCmd, keysDeleteCmd)
	settingsCmd.AddCommand(keysCmd, appSettingsCmd)
	rootCmd.AddCommand(settingsCmd)
}
