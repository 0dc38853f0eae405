package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage backend profiles",
	Long:  `Manage backend profiles: where the API lives, timeouts and how the assistant is reached.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Fprintln(out, "Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Fprintf(out, "  %s%s\n", name, marker)
			fmt.Fprintf(out, "    API URL: %s\n", profile.APIURL)
			fmt.Fprintf(out, "    Assistant: %s\n", profile.AssistantTransport())
			fmt.Fprintln(out)
		}
		return nil
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		profileName := cfg.ActiveProfile
		if len(args) > 0 {
			profileName = args[0]
		}
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			return fmt.Errorf("%w: %s", config.ErrProfileNotFound, profileName)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile: %s\n", profileName)
		fmt.Fprintf(out, "API URL: %s\n", profile.APIURL)
		wsURL := profile.WSURL
		if wsURL == "" {
			wsURL = "(derived from API URL)"
		}
		fmt.Fprintf(out, "WebSocket URL: %s\n", wsURL)
		fmt.Fprintf(out, "Request timeout: %s\n", profile.RequestTimeout())
		if profile.RateLimit > 0 {
			fmt.Fprintf(out, "Rate limit: %g req/s\n", profile.RateLimit)
		}
		fmt.Fprintf(out, "Assistant: %s\n", profile.AssistantTransport())
		if profile.AssistantTransport() == config.AssistantDirect {
			fmt.Fprintf(out, "  Model: %s\n", profile.Assistant.Model)
			fmt.Fprintf(out, "  Base URL: %s\n", profile.Assistant.BaseURL)
			hasKey := "Not set"
			if profile.Assistant.APIKey != "" {
				hasKey = "Set (hidden for security)"
			}
			fmt.Fprintf(out, "  API Key: %s\n", hasKey)
		}
		return nil
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label:    "Profile name",
				Validate: required,
			}
			profileName, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("prompt failed: %w", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			return fmt.Errorf("profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.DefaultProfile())
		if err != nil {
			return err
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' added successfully!\n", profileName)
		return nil
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		profileName, err := pickProfile(cfg, args, "Select profile to edit", "")
		if err != nil {
			return err
		}
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			return fmt.Errorf("%w: %s", config.ErrProfileNotFound, profileName)
		}

		profile, err = promptProfile(profile)
		if err != nil {
			return err
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' updated successfully!\n", profileName)
		return nil
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		profileName, err := pickProfile(cfg, args, "Select profile to delete", "")
		if err != nil {
			return err
		}
		if _, exists := cfg.Profiles[profileName]; !exists {
			return fmt.Errorf("%w: %s", config.ErrProfileNotFound, profileName)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
			return nil
		}

		removeProfile(cfg, profileName)

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted successfully!\n", profileName)
		return nil
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		profileName, err := pickProfile(cfg, args, "Select profile to switch to", cfg.ActiveProfile)
		if errors.Is(err, config.ErrNoProfiles) {
			fmt.Fprintln(cmd.OutOrStdout(), "No other profiles available to switch to")
			return nil
		}
		if err != nil {
			return err
		}

		if err := activateProfile(profileName); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile '%s'\n", profileName)
		return nil
	},
}

// pickProfile returns the named profile, or asks for one, leaving out skip.
func pickProfile(cfg *config.Config, args []string, label, skip string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	var names []string
	for _, name := range cfg.ProfileNames() {
		if name != skip {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", config.ErrNoProfiles
	}

	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection failed: %w", err)
	}
	return name, nil
}

// removeProfile deletes name, moving the active profile elsewhere. Deleting
// the last profile leaves a fresh default one.
func removeProfile(cfg *config.Config, name string) {
	delete(cfg.Profiles, name)
	if len(cfg.Profiles) == 0 {
		cfg.Profiles[config.DefaultProfileName] = config.DefaultProfile()
	}
	if _, ok := cfg.Profiles[cfg.ActiveProfile]; !ok {
		cfg.ActiveProfile = cfg.ProfileNames()[0]
	}
}

// promptProfile walks through every profile field, starting from p.
func promptProfile(p config.Profile) (config.Profile, error) {
	var err error

	apiURLPrompt := promptui.Prompt{
		Label:    "API URL",
		Default:  p.APIURL,
		Validate: validURL("http", "https"),
	}
	if p.APIURL, err = apiURLPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	wsURLPrompt := promptui.Prompt{
		Label:   "WebSocket URL (empty derives it from the API URL)",
		Default: p.WSURL,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			return validURL("ws", "wss")(s)
		},
	}
	if p.WSURL, err = wsURLPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	timeoutPrompt := promptui.Prompt{
		Label:    "Request timeout (seconds)",
		Default:  strconv.Itoa(int(p.RequestTimeout().Seconds())),
		Validate: positiveNumber,
	}
	timeout, err := timeoutPrompt.Run()
	if err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}
	p.RequestTimeoutSeconds, _ = strconv.Atoi(timeout)

	transportSelect := promptui.Select{
		Label: "Assistant transport",
		Items: []string{config.AssistantBackend, config.AssistantDirect},
	}
	if _, p.Assistant.Transport, err = transportSelect.Run(); err != nil {
		return p, fmt.Errorf("selection failed: %w", err)
	}
	if p.Assistant.Transport != config.AssistantDirect {
		return p, nil
	}

	apiKeyPrompt := promptui.Prompt{
		Label:   "Assistant API Key",
		Default: p.Assistant.APIKey,
		Mask:    '*',
	}
	if p.Assistant.APIKey, err = apiKeyPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	modelDefault := p.Assistant.Model
	if modelDefault == "" {
		modelDefault = "gpt-4o-mini"
	}
	modelPrompt := promptui.Prompt{
		Label:   "Assistant model",
		Default: modelDefault,
	}
	if p.Assistant.Model, err = modelPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	baseURLPrompt := promptui.Prompt{
		Label:   "Assistant base URL (optional)",
		Default: p.Assistant.BaseURL,
	}
	if p.Assistant.BaseURL, err = baseURLPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}
	return p, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func positiveNumber(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a positive whole number")
	}
	return nil
}

func validURL(schemes ...string) promptui.ValidateFunc {
	return func(s string) error {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil || u.Host == "" {
			return errors.New("enter a full URL")
		}
		for _, scheme := range schemes {
			if u.Scheme == scheme {
				return nil
			}
		}
		return fmt.Errorf("scheme must be one of %s", strings.Join(schemes, ", "))
	}
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
