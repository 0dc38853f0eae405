package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyberforge/cyberforge/internal/chat"
	"github.com/cyberforge/cyberforge/internal/core"
)

var chatCmd = &cobra.Command{
	Use:   "chat <prompt...>",
	Short: "Ask the security assistant and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()

		out := cmd.OutOrStdout()
		written := 0
		session := chat.NewSession(core.NewTransport(s.cfg, s.client), chat.WithOnUpdate(func(snap chat.Snapshot) {
			// print only what arrived since the last update
			if n := len(snap.Messages); n > 0 && snap.Messages[n-1].Role == chat.RoleAssistant {
				text := snap.Messages[n-1].Content
				if len(text) > written {
					fmt.Fprint(out, text[written:])
					written = len(text)
				}
			}
		}))

		if err := session.Send(ctx, strings.Join(args, " ")); err != nil {
			if written > 0 {
				fmt.Fprintln(out)
			}
			return err
		}
		fmt.Fprintln(out)
		if model := session.Snapshot().Model; model != "" {
			s.logger.Info("reply finished", "model", model)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
