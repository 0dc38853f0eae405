package cmd

import (
	"github.com/spf13/cobra"
)

var logFormat string

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Analyze log files on the backend",
}

var logsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Send a log file's content for anomaly analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "logs.analyze", args[0], []string{"format=" + logFormat})
	},
}

var logsUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a log file as multipart form data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "logs.upload", args[0], []string{"format=" + logFormat})
	},
}

var logsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past log analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel(cmd, "logs.history", "", nil)
	},
}

func init() {
	for _, c := range []*cobra.Command{logsAnalyzeCmd, logsUploadCmd} {
		addOutputFlags(c)
		c.Flags().StringVar(&logFormat, "format", "auto", "log format: auto, apache, nginx, syslog or windows")
	}
	addOutputFlags(logsHistoryCmd)

	logsCmd.AddCommand(logsAnalyzeCmd, logsUploadCmd, logsHistoryCmd)
	rootCmd.AddCommand(logsCmd)
}
