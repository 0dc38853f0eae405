package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()

		h, err := s.client.Health(ctx)
		if err != nil {
			return fmt.Errorf("backend %s unreachable: %w", s.client.BaseURL(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (version %s)\n", s.client.BaseURL(), h.Status, h.Version)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "dashboard.stats", "", nil)
	},
}

func init() {
	addOutputFlags(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
}
