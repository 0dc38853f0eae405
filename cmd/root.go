package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "cyberforge",
	Short: "Security dashboard for the CyberForge backend",
	Long: `CyberForge is a terminal dashboard for the CyberForge security backend.
Without a subcommand it opens the dashboard; the subcommands run single
scans, stream assistant replies and manage profiles from the shell.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

// runDashboard opens the TUI on the selected profile.
func runDashboard() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	application, err := app.NewApplicationWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer application.Stop()

	return application.Start()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "profile to use for this run")
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(profileCmd)
}
