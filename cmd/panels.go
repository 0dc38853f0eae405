package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/panels"
	"github.com/cyberforge/cyberforge/ui/styles"
)

var panelsMode string

var panelsCmd = &cobra.Command{
	Use:   "panels",
	Short: "List the panels scan can run",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := panels.NewBuiltinRegistry()

		list := registry.List()
		m := mode.Forge
		if panelsMode != "" {
			parsed, err := mode.Parse(panelsMode)
			if err != nil {
				return err
			}
			m = parsed
			list = registry.ForMode(m)
		}

		rows := make([][]string, 0, len(list))
		for _, p := range list {
			inputs := make([]string, 0, len(p.Params))
			for _, param := range p.Params {
				in := param.Name
				if param.Default != "" {
					in += "=" + param.Default
				}
				if param.Required {
					in += "*"
				}
				inputs = append(inputs, in)
			}
			confirm := ""
			if p.Dangerous {
				confirm = "yes"
			}
			rows = append(rows, []string{p.Name, p.Title, p.Section, strings.Join(inputs, " "), confirm})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("PANEL", "TITLE", "SECTION", "INPUTS", "CONFIRM").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return styles.TableHeaderStyle(m)
				}
				return styles.CellStyle()
			})
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		fmt.Fprintln(cmd.OutOrStdout(), "* required; the first input takes the free text of scan")
		return nil
	},
}

func init() {
	panelsCmd.Flags().StringVarP(&panelsMode, "mode", "m", "", "only panels reachable in this mode (forge or lancer)")
	rootCmd.AddCommand(panelsCmd)
}
