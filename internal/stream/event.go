package stream

import (
	"fmt"

	"github.com/cyberforge/cyberforge/internal/jsonutil"
)

// TokenEvent is one assistant chat frame.
type TokenEvent struct {
	Token string `json:"token,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
	Model string `json:"model,omitempty"`
}

// ParseTokenEvent decodes a chat frame payload.
func ParseTokenEvent(payload []byte) (TokenEvent, error) {
	var ev TokenEvent
	if err := jsonutil.Unmarshal(payload, &ev); err != nil {
		return TokenEvent{}, fmt.Errorf("malformed token frame: %w", err)
	}
	return ev, nil
}

// Terminal event kinds emitted by an exploitation session.
const (
	TerminalInfo     = "info"
	TerminalCommand  = "command"
	TerminalOutput   = "output"
	TerminalSuccess  = "success"
	TerminalError    = "error"
	TerminalComplete = "complete"
)

// TerminalEvent is one line of exploitation terminal output.
type TerminalEvent struct {
	Type      string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Module    string `json:"module,omitempty"`
}

// ParseTerminalEvent decodes a terminal frame payload.
func ParseTerminalEvent(payload []byte) (TerminalEvent, error) {
	var ev TerminalEvent
	if err := jsonutil.Unmarshal(payload, &ev); err != nil {
		return TerminalEvent{}, fmt.Errorf("malformed terminal frame: %w", err)
	}
	return ev, nil
}

// Final reports whether the session has ended.
func (e TerminalEvent) Final() bool {
	return e.Type == TerminalComplete
}
