// Package chat runs the assistant conversation: it owns the message list,
// streams the assistant's reply token by token and publishes an immutable
// snapshot after every change.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/cyberforge/cyberforge/internal/logging"
)

// Snapshot is a point-in-time view of a Session. Its Messages slice is never
// modified after publication.
type Snapshot struct {
	Messages []Message
	Phase    Phase
	Err      error
	Model    string
}

// Streaming reports whether a reply is in flight.
func (s Snapshot) Streaming() bool {
	return s.Phase.Busy()
}

// Session is a single assistant conversation.
type Session struct {
	transport Transport
	onUpdate  func(Snapshot)
	logger    *logging.Logger

	mu       sync.Mutex
	messages []Message
	phase    Phase
	err      error
	model    string
	cancel   context.CancelFunc
	// gen increments on every Send and Clear so a stale stream can tell its
	// results no longer belong to the current conversation.
	gen uint64
}

// Option configures a Session.
type Option func(*Session)

// WithOnUpdate registers fn to receive every snapshot. fn runs with the
// session locked and must not call back into the Session.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

// WithHistory seeds the conversation.
func WithHistory(msgs []Message) Option {
	return func(s *Session) {
		s.messages = append([]Message(nil), msgs...)
	}
}

// NewSession creates an idle session using transport.
func NewSession(transport Transport, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		logger:    logging.Default().WithComponent("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Send appends content as a user turn and streams the assistant reply. It
// blocks until the stream ends. While a send is in flight, or when content is
// blank, Send does nothing and returns nil. Cancellation (Cancel, Clear or
// ctx) also returns nil; when no token had arrived the message list is put
// back exactly as it was before the call.
func (s *Session) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)

	s.mu.Lock()
	if content == "" || s.phase.Busy() {
		s.mu.Unlock()
		return nil
	}

	before := s.messages
	history := make([]Message, len(before), len(before)+1)
	copy(history, before)
	history = append(history, Message{Role: RoleUser, Content: content})

	withPlaceholder := make([]Message, len(history), len(history)+1)
	copy(withPlaceholder, history)
	withPlaceholder = append(withPlaceholder, Message{Role: RoleAssistant})

	ctx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.messages = withPlaceholder
	s.phase = PhaseSending
	s.err = nil
	s.cancel = cancel
	s.publishLocked()
	s.mu.Unlock()
	defer cancel()

	s.logger.Stream("send", "turns", len(history))

	ts, err := s.transport.Stream(ctx, history)
	if err != nil {
		return s.finish(ctx, gen, before, false, err)
	}
	defer ts.Close()

	if !s.advance(gen, func() { s.phase = PhaseStreaming }) {
		return nil
	}

	var reply strings.Builder
	received := false
	for {
		ev, err := ts.Recv()
		if errors.Is(err, io.EOF) {
			return s.finish(ctx, gen, before, received, nil)
		}
		if err != nil {
			return s.finish(ctx, gen, before, received, err)
		}
		if ev.Error != "" {
			return s.finish(ctx, gen, before, received, &StreamError{Message: ev.Error})
		}
		if ev.Model != "" {
			s.advance(gen, func() { s.model = ev.Model })
		}
		if ev.Done || ev.Token == "" {
			continue
		}

		received = true
		reply.WriteString(ev.Token)
		text := reply.String()
		if !s.advance(gen, func() { s.replaceLastLocked(text) }) {
			return nil
		}
	}
}

// advance applies fn and publishes, unless the conversation has moved on.
func (s *Session) advance(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	fn()
	s.publishLocked()
	return true
}

// replaceLastLocked swaps the trailing assistant message for a new value in
// a new slice.
func (s *Session) replaceLastLocked(text string) {
	next := make([]Message, len(s.messages))
	copy(next, s.messages)
	next[len(next)-1] = Message{Role: RoleAssistant, Content: text}
	s.messages = next
}

func (s *Session) finish(ctx context.Context, gen uint64, before []Message, received bool, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// Cleared mid-flight; the new conversation owns the state.
		return nil
	}
	s.cancel = nil

	switch {
	case err == nil:
		s.phase = PhaseIdle
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		if !received {
			s.messages = before
		}
		s.phase = PhaseIdle
		err = nil
		s.logger.Stream("send cancelled", "restored", !received)
	default:
		if n := len(s.messages); n > 0 && s.messages[n-1].Role == RoleAssistant && s.messages[n-1].Content == "" {
			s.messages = s.messages[:n-1:n-1]
		}
		s.phase = PhaseError
		s.err = err
		s.logger.Warn("chat stream failed", "error", err)
	}

	s.publishLocked()
	return err
}

// Cancel stops the in-flight send, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Clear cancels any in-flight send and empties the conversation.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.messages = nil
	s.phase = PhaseIdle
	s.err = nil
	s.publishLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Messages: s.messages,
		Phase:    s.phase,
		Err:      s.err,
		Model:    s.model,
	}
}

func (s *Session) publishLocked() {
	if s.onUpdate != nil {
		s.onUpdate(s.snapshotLocked())
	}
}
