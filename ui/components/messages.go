package components

import (
	"strings"

	"github.com/cyberforge/cyberforge/internal/chat"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/ui/styles"
)

const streamCursor = "▌"

// RenderMessages draws the conversation. The reply being streamed gets a
// cursor; a failed send shows its error under the last message.
func RenderMessages(snap chat.Snapshot, m mode.Mode, width int) string {
	var b strings.Builder

	if len(snap.Messages) == 0 {
		b.WriteString(styles.SystemStyle().Render("Ask about a scan result, a CVE or a log excerpt. Ctrl+L clears the conversation.") + "\n\n")
	}

	wrap := max(width-6, 20)
	last := len(snap.Messages) - 1
	for i, msg := range snap.Messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(styles.UserStyle().Width(wrap).Render("You: "+msg.Content) + "\n\n")
		case chat.RoleAssistant:
			content := RenderMarkdown(msg.Content)
			if i == last && snap.Streaming() {
				content += streamCursor
			}
			b.WriteString(styles.AssistantStyle(m).Width(wrap).Render(content) + "\n\n")
		default:
			b.WriteString(styles.SystemStyle().Render(msg.Content) + "\n\n")
		}
	}

	if snap.Err != nil {
		b.WriteString(styles.ErrorStyle().Render("  ✗ "+snap.Err.Error()) + "\n")
	}
	if snap.Model != "" && !snap.Streaming() {
		b.WriteString(styles.MutedStyle().Render("  model: "+snap.Model) + "\n")
	}

	return b.String()
}
