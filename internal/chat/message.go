package chat

import (
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/cyberforge/cyberforge/internal/api"
)

// Roles accepted by the assistant.
const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
	RoleSystem    = openai.ChatMessageRoleSystem
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Phase is the lifecycle position of a Session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// Busy reports whether a send is in flight.
func (p Phase) Busy() bool {
	return p == PhaseSending || p == PhaseStreaming
}

// ErrStream matches errors reported by the backend inside the stream itself.
var ErrStream = errors.New("chat: stream reported an error")

// StreamError carries the message of an in-band error frame.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

func (e *StreamError) Is(target error) bool {
	return target == ErrStream
}

func toWire(msgs []Message) []api.ChatMessage {
	out := make([]api.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = api.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func toOpenAI(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
