package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	reportScanIDs []string
	reportType    string
	reportAI      bool
	reportFormat  string
	reportOutFile string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List, generate and download reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "reports.list", "", nil)
	},
}

var reportsScansCmd = &cobra.Command{
	Use:   "scans",
	Short: "List scans that can go into a report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "reports.scans", "", nil)
	},
}

var reportsGetCmd = &cobra.Command{
	Use:   "get <report-id>",
	Short: "Show one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "reports.get", args[0], nil)
	},
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate <title...>",
	Short: "Generate a report from finished scans",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignments := []string{
			"title=" + strings.Join(args, " "),
			"report_type=" + reportType,
			"ai_summary=" + strconv.FormatBool(reportAI),
		}
		if len(reportScanIDs) > 0 {
			assignments = append(assignments, "scan_ids="+strings.Join(reportScanIDs, ","))
		}
		return runPanel(cmd, "reports.generate", "", assignments)
	},
}

var reportsDownloadCmd = &cobra.Command{
	Use:   "download <report-id>",
	Short: "Download a rendered report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportFormat != "pdf" && reportFormat != "markdown" {
			return fmt.Errorf("unknown report format %q (want pdf or markdown)", reportFormat)
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()

		path := reportOutFile
		if path == "" {
			ext := ".pdf"
			if reportFormat == "markdown" {
				ext = ".md"
			}
			path = "report-" + args[0] + ext
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := s.client.Reports.Download(ctx, args[0], reportFormat, f); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <report-id>",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()

		if err := s.client.Reports.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reportsListCmd, reportsScansCmd, reportsGetCmd, reportsGenerateCmd} {
		addOutputFlags(c)
	}
	reportsGenerateCmd.Flags().StringSliceVar(&reportScanIDs, "scan", nil, "scan id to include (repeatable)")
	reportsGenerateCmd.Flags().StringVar(&reportType, "type", "full", "report type")
	reportsGenerateCmd.Flags().BoolVar(&reportAI, "ai-summary", false, "ask the assistant for an executive summary")
	reportsDownloadCmd.Flags().StringVar(&reportFormat, "format", "pdf", "pdf or markdown")
	reportsDownloadCmd.Flags().StringVarP(&reportOutFile, "out", "f", "", "file to write (default report-<id>.<ext>)")

	reportsCmd.AddCommand(reportsListCmd, reportsScansCmd, reportsGetCmd, reportsGenerateCmd, reportsDownloadCmd, reportsDeleteCmd)
	rootCmd.AddCommand(reportsCmd)
}
