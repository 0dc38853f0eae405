package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/progress"
)

// ErrWatchLost is returned when the progress socket cannot be re-established.
var ErrWatchLost = errors.New("lost connection to scan progress")

var watchCmd = &cobra.Command{
	Use:   "watch <scan-id>",
	Short: "Follow a running scan's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()
		return watchScan(ctx, cmd, s, args[0])
	},
}

// watchScan prints progress until the scan finishes, the watcher gives up
// or ctx is cancelled. On a terminal the line is redrawn in place.
func watchScan(ctx context.Context, cmd *cobra.Command, s *session, scanID string) error {
	updates := make(chan progress.State, 64)
	w := progress.NewWatcher(s.cfg.GetWSURL(),
		progress.WithOnUpdate(func(id string, st progress.State) {
			if id != scanID {
				return
			}
			select {
			case updates <- st:
			default:
			}
		}))
	w.Watch(scanID)
	defer w.Stop()
	done := w.Done()

	out := cmd.ErrOrStderr()
	tty := isTerminal(out)
	var last progress.State
	for {
		select {
		case <-ctx.Done():
			endLine(out, tty)
			return nil
		case <-done:
			endLine(out, tty)
			if progress.Finished(last.Status) {
				return finishedErr(scanID, last)
			}
			return fmt.Errorf("%w: %s", ErrWatchLost, scanID)
		case st := <-updates:
			if st == last {
				continue
			}
			last = st
			printProgress(out, scanID, st, tty)
			if progress.Finished(st.Status) {
				endLine(out, tty)
				return finishedErr(scanID, st)
			}
		}
	}
}

func finishedErr(scanID string, st progress.State) error {
	if st.Status == progress.StatusCompleted {
		return nil
	}
	return fmt.Errorf("scan %s %s: %s", scanID, st.Status, st.CurrentTask)
}

const barWidth = 30

func printProgress(out io.Writer, scanID string, st progress.State, tty bool) {
	pct := min(max(st.Progress, 0), 100)
	filled := int(pct / 100 * barWidth)
	link := "live"
	if !st.Connected {
		link = "reconnecting"
	}
	line := fmt.Sprintf("%s [%s%s] %3.0f%% %s %s (%s)",
		scanID, strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled),
		pct, st.Status, st.CurrentTask, link)
	if tty {
		fmt.Fprintf(out, "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(out, line)
}

func endLine(out io.Writer, tty bool) {
	if tty {
		fmt.Fprintln(out)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
