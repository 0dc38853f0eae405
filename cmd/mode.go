package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/mode"
)

var modeCmd = &cobra.Command{
	Use:       "mode [forge|lancer]",
	Short:     "Show or set the dashboard mode",
	Long:      `Forge is the defensive dashboard; Lancer adds OSINT and the Seek & Enter tools.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(mode.Forge), string(mode.Lancer)},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		store, err := s.prefs()
		if err != nil {
			return err
		}
		provider := mode.NewProvider(store)

		if len(args) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", provider.Current(), provider.Current().Title())
			return nil
		}

		next, err := mode.Parse(args[0])
		if err != nil {
			return err
		}
		if err := provider.Set(next); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mode set to %s (%s)\n", next, next.Title())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modeCmd)
}
