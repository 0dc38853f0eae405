package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/config"
)

var useCmd = &cobra.Command{
	Use:   "use [profile-name]",
	Short: "Switch to a profile and open the dashboard",
	Long:  `Make the specified profile the active one and immediately open the dashboard.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := activateProfile(args[0]); err != nil {
			return err
		}
		profileFlag = ""
		return runDashboard()
	},
}

// activateProfile saves name as the active profile.
func activateProfile(name string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.SelectProfile(name); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(useCmd)
}
