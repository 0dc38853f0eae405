package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/stream"
)

// scriptedTransport replays events; a nil event in the script blocks until
// the stream's context is cancelled.
type scriptedTransport struct {
	events  []stream.TokenEvent
	block   bool
	openErr error
	opened  chan []Message
}

func (t *scriptedTransport) Stream(ctx context.Context, history []Message) (TokenStream, error) {
	if t.opened != nil {
		t.opened <- history
	}
	if t.openErr != nil {
		return nil, t.openErr
	}
	return &scriptedStream{ctx: ctx, events: t.events, block: t.block}, nil
}

type scriptedStream struct {
	ctx    context.Context
	events []stream.TokenEvent
	block  bool
}

func (s *scriptedStream) Recv() (stream.TokenEvent, error) {
	if len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		return ev, nil
	}
	if s.block {
		<-s.ctx.Done()
		return stream.TokenEvent{}, s.ctx.Err()
	}
	return stream.TokenEvent{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func TestSend_StreamsTokens(t *testing.T) {
	tr := &scriptedTransport{events: []stream.TokenEvent{
		{Token: "He"}, {Token: "llo"}, {Done: true, Model: "m1"},
	}}
	rec := &recorder{}
	s := NewSession(tr, WithOnUpdate(rec.record))

	require.NoError(t, s.Send(context.Background(), "hi"))

	snap := s.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "m1", snap.Model)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, snap.Messages[0])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "Hello"}, snap.Messages[1])

	phases := []Phase{}
	for _, sn := range rec.all() {
		phases = append(phases, sn.Phase)
	}
	assert.Equal(t, PhaseSending, phases[0])
	assert.Contains(t, phases, PhaseStreaming)
	assert.Equal(t, PhaseIdle, phases[len(phases)-1])
}

func TestSend_SnapshotsAreImmutable(t *testing.T) {
	tr := &scriptedTransport{events: []stream.TokenEvent{{Token: "a"}, {Token: "b"}}}
	rec := &recorder{}
	s := NewSession(tr, WithOnUpdate(rec.record))

	require.NoError(t, s.Send(context.Background(), "q"))

	var contents []string
	for _, sn := range rec.all() {
		if n := len(sn.Messages); n > 0 && sn.Messages[n-1].Role == RoleAssistant {
			contents = append(contents, sn.Messages[n-1].Content)
		}
	}
	assert.Equal(t, []string{"", "", "a", "ab", "ab"}, contents)
}

func TestSend_HistoryExcludesPlaceholder(t *testing.T) {
	tr := &scriptedTransport{opened: make(chan []Message, 1)}
	s := NewSession(tr, WithHistory([]Message{{Role: RoleSystem, Content: "be brief"}}))

	require.NoError(t, s.Send(context.Background(), "scan tips"))
	history := <-tr.opened
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "scan tips"},
	}, history)
}

func TestSend_BlankIsNoop(t *testing.T) {
	tr := &scriptedTransport{opened: make(chan []Message, 1)}
	s := NewSession(tr)

	require.NoError(t, s.Send(context.Background(), "   \n"))
	assert.Empty(t, s.Snapshot().Messages)
	assert.Empty(t, tr.opened)
}

func TestSend_ReentrantIsNoop(t *testing.T) {
	tr := &scriptedTransport{block: true, opened: make(chan []Message, 2)}
	s := NewSession(tr)

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "first") }()
	<-tr.opened

	require.NoError(t, s.Send(context.Background(), "second"))
	assert.Len(t, s.Snapshot().Messages, 2, "second send must not append")
	assert.Empty(t, tr.opened, "second send must not open a stream")

	s.Cancel()
	require.NoError(t, <-done)
}

func TestCancel_BeforeTokenRestoresMessages(t *testing.T) {
	tr := &scriptedTransport{block: true, opened: make(chan []Message, 1)}
	prior := []Message{{Role: RoleUser, Content: "old"}, {Role: RoleAssistant, Content: "reply"}}
	s := NewSession(tr, WithHistory(prior))

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "new question") }()
	<-tr.opened

	assert.Len(t, s.Snapshot().Messages, 4)
	s.Cancel()
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, prior, snap.Messages)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.NoError(t, snap.Err)
}

func TestCancel_AfterEmptyTokenRestoresMessages(t *testing.T) {
	tr := &scriptedTransport{block: true, events: []stream.TokenEvent{{Token: "", Model: "gpt"}}}
	rec := make(chan Snapshot, 16)
	s := NewSession(tr, WithOnUpdate(func(sn Snapshot) { rec <- sn }))

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "hi") }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case sn := <-rec:
			if sn.Model != "gpt" {
				continue
			}
			s.Cancel()
			require.NoError(t, <-done)
			snap := s.Snapshot()
			assert.Empty(t, snap.Messages)
			assert.Equal(t, PhaseIdle, snap.Phase)
			return
		case <-deadline:
			t.Fatal("model never published")
		}
	}
}

func TestCancel_AfterTokenKeepsPartialReply(t *testing.T) {
	tr := &scriptedTransport{block: true, events: []stream.TokenEvent{{Token: "partial"}}}
	rec := make(chan Snapshot, 16)
	s := NewSession(tr, WithOnUpdate(func(sn Snapshot) { rec <- sn }))

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "q") }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case sn := <-rec:
			if n := len(sn.Messages); n == 2 && sn.Messages[1].Content == "partial" {
				s.Cancel()
				require.NoError(t, <-done)
				got := s.Snapshot().Messages
				require.Len(t, got, 2)
				assert.Equal(t, "partial", got[1].Content)
				return
			}
		case <-deadline:
			t.Fatal("token never published")
		}
	}
}

func TestCallerContextCancelIsSilent(t *testing.T) {
	tr := &scriptedTransport{block: true, opened: make(chan []Message, 1)}
	s := NewSession(tr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Send(ctx, "q") }()
	<-tr.opened
	cancel()

	require.NoError(t, <-done)
	assert.Empty(t, s.Snapshot().Messages)
}

func TestClear_DuringStream(t *testing.T) {
	tr := &scriptedTransport{block: true, opened: make(chan []Message, 1)}
	s := NewSession(tr)

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "q") }()
	<-tr.opened

	s.Clear()
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Equal(t, PhaseIdle, snap.Phase)
}

func TestSend_OpenErrorDropsPlaceholder(t *testing.T) {
	tr := &scriptedTransport{openErr: &api.APIError{Status: 500, Code: api.CodeHTTP, Message: "AI provider not configured"}}
	s := NewSession(tr)

	err := s.Send(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, "AI provider not configured", err.Error())

	snap := s.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "q"}}, snap.Messages)
	assert.Equal(t, err, snap.Err)
}

func TestSend_ErrorFrame(t *testing.T) {
	tr := &scriptedTransport{events: []stream.TokenEvent{{Token: "par"}, {Error: "provider timeout", Done: true}, {Token: "never"}}}
	s := NewSession(tr)

	err := s.Send(context.Background(), "q")
	assert.ErrorIs(t, err, ErrStream)
	assert.Equal(t, "provider timeout", err.Error())

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 2, "non-empty reply is kept")
	assert.Equal(t, "par", snap.Messages[1].Content)
}

func TestSend_NewSendLeavesErrorState(t *testing.T) {
	tr := &scriptedTransport{openErr: errors.New("boom")}
	s := NewSession(tr)
	require.Error(t, s.Send(context.Background(), "q"))
	assert.Equal(t, PhaseError, s.Snapshot().Phase)

	tr.openErr = nil
	tr.events = []stream.TokenEvent{{Token: "ok"}}
	require.NoError(t, s.Send(context.Background(), "again"))

	snap := s.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.NoError(t, snap.Err)
}

func TestBackendTransport_EndToEnd(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		reply   string
		wantErr string
	}{
		{
			name:   "tokens with malformed frame skipped",
			status: http.StatusOK,
			body:   "data: {\"token\":\"He\"}\ndata: {oops\n\ndata: {\"token\":\"llo\"}\ndata: {\"token\":\"\",\"done\":true}\n",
			reply:  "Hello",
		},
		{
			name:    "detail from server",
			status:  http.StatusInternalServerError,
			body:    `{"detail":"No AI provider configured"}`,
			wantErr: "No AI provider configured",
		},
		{
			name:    "status fallback",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantErr: "Request failed with status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/assistant/chat", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewSession(NewBackendTransport(api.New(srv.URL)))
			err := s.Send(context.Background(), "hello")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Len(t, s.Snapshot().Messages, 1)
				return
			}
			require.NoError(t, err)
			msgs := s.Snapshot().Messages
			require.Len(t, msgs, 2)
			assert.Equal(t, tt.reply, msgs[1].Content)
		})
	}
}

func TestAnalyze_RejectsUnknownTask(t *testing.T) {
	_, err := Analyze(context.Background(), api.New("http://127.0.0.1:1"), "poetry", "x")
	assert.ErrorContains(t, err, "unknown analysis task")
}
