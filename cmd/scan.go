package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/panels"
)

var (
	scanOutput string
	scanTable  tableOptions
	scanWatch  bool
	scanArgs   []string
	scanYes    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <panel> [input...]",
	Short: "Run one dashboard panel and print its result",
	Long: `Run one panel (see "cyberforge panels") against the backend. The free
input fills the panel's main field; --arg name=value sets the others.
Panels that act on remote hosts ask for confirmation unless --yes is given.`,
	Example: `  cyberforge scan recon.subdomains example.com
  cyberforge scan recon.ports 10.0.0.5 --arg ports=22,80,443 --sort port
  cyberforge scan seek.seek 10.0.0.0/24 --watch --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, args[0], strings.Join(args[1:], " "), scanArgs)
	},
}

// runPanel executes one panel and prints the result, then follows the scan
// it started when --watch is set.
func runPanel(cmd *cobra.Command, name, input string, assignments []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	registry := panels.NewBuiltinRegistry()
	p, ok := registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", panels.ErrUnknownPanel, name)
	}
	registry.SetConfirmator(promptConfirmator{assumeYes: scanYes, out: cmd.ErrOrStderr()})

	args := panels.ParseInput(p, input)
	for k, v := range panels.ParseAssignments(assignments) {
		args[k] = v
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	s.logger.Scan("panel started", name)
	res := registry.Execute(ctx, s.client, panels.Call{ID: uuid.NewString(), Panel: name, Args: args})
	if res.Err != nil {
		return res.Err
	}
	s.logger.Scan("panel finished", name, "elapsed_ms", res.Elapsed.Milliseconds())

	if err := writeDocument(cmd.OutOrStdout(), res.Doc, scanOutput, scanTable); err != nil {
		return err
	}

	if scanWatch {
		scanID := res.ScanID()
		if scanID == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "result carries no scan id; nothing to watch")
			return nil
		}
		return watchScan(ctx, cmd, s, scanID)
	}
	return nil
}

// addOutputFlags registers the result formatting flags on c.
func addOutputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&scanOutput, "output", "o", OutputTable, "output format: table, json or yaml")
	c.Flags().StringVar(&scanTable.Sort, "sort", "", "sort table rows by this column")
	c.Flags().BoolVar(&scanTable.Desc, "desc", false, "sort descending")
	c.Flags().IntVar(&scanTable.Page, "page", 1, "table page to show")
	c.Flags().IntVar(&scanTable.PerPage, "per-page", panels.DefaultPerPage, "table rows per page")
}

func init() {
	addOutputFlags(scanCmd)
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "follow the started scan's progress")
	scanCmd.Flags().StringArrayVarP(&scanArgs, "arg", "a", nil, "panel input as name=value (repeatable)")
	scanCmd.Flags().BoolVarP(&scanYes, "yes", "y", false, "skip confirmation of dangerous panels")

	rootCmd.AddCommand(scanCmd)
}
