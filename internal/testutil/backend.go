// Package testutil provides an in-process stand-in for the CyberForge
// backend: canned REST responses, a chunked token stream and the WebSocket
// progress channel.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/jsonutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type cannedResponse struct {
	status int
	body   string
}

// Backend is a fake backend bound to a test's lifetime.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	responses map[string]cannedResponse
	hits      map[string]int
	bodies    map[string][]string
	tokens    []string
	chatErr   string
	progress  []string
}

// NewBackend starts a fake backend with healthy defaults.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		responses: make(map[string]cannedResponse),
		hits:      make(map[string]int),
		bodies:    make(map[string][]string),
		tokens:    []string{"Hel", "lo"},
	}
	b.Respond(http.MethodGet, "/api/health", http.StatusOK, `{"status":"ok","version":"1.0.0"}`)
	b.Respond(http.MethodGet, "/api/stats/dashboard", http.StatusOK,
		`{"total_scans":12,"vulnerabilities_found":4,"threats_detected":2,"reports_generated":1,"recent_scans":[],"module_activity":[]}`)

	r := chi.NewRouter()
	r.Post("/api/assistant/chat", b.handleChat)
	r.Get("/ws/scan/{scanID}", b.handleProgress)
	r.NotFound(b.handleCanned)
	r.MethodNotAllowed(b.handleCanned)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the HTTP base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// WSURL returns the WebSocket base URL.
func (b *Backend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http")
}

// Client returns an API client pointed at the fake.
func (b *Backend) Client(opts ...api.Option) *api.Client {
	return api.New(b.URL(), opts...)
}

// Respond sets the canned reply for method and path.
func (b *Backend) Respond(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[method+" "+path] = cannedResponse{status: status, body: body}
}

// StreamTokens sets the tokens the chat endpoint streams. A non-empty
// errMsg is sent as an error frame after the tokens.
func (b *Backend) StreamTokens(tokens []string, errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = tokens
	b.chatErr = errMsg
}

// ProgressMessages sets the frames sent to each progress socket.
func (b *Backend) ProgressMessages(msgs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress = msgs
}

// Hits returns how often method and path were requested.
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// Bodies returns the request bodies received for method and path.
func (b *Backend) Bodies(method, path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies[method+" "+path]...)
}

func (b *Backend) record(r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}
	key := r.Method + " " + r.URL.Path
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits[key]++
	b.bodies[key] = append(b.bodies[key], string(body))
}

func (b *Backend) handleCanned(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	b.mu.Lock()
	resp, ok := b.responses[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"detail":"Not Found"}`)
		return
	}
	w.WriteHeader(resp.status)
	w.Write([]byte(resp.body))
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	b.mu.Lock()
	canned, override := b.responses[r.Method+" "+r.URL.Path]
	tokens := append([]string(nil), b.tokens...)
	chatErr := b.chatErr
	b.mu.Unlock()

	if override {
		w.WriteHeader(canned.status)
		w.Write([]byte(canned.body))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	send := func(v any) {
		data, _ := jsonutil.Marshal(v)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	for _, tok := range tokens {
		send(map[string]any{"token": tok, "done": false})
	}
	if chatErr != "" {
		send(map[string]any{"error": chatErr, "done": true})
		return
	}
	send(map[string]any{"token": "", "done": true, "model": "fake-model"})
}

func (b *Backend) handleProgress(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	b.mu.Lock()
	msgs := append([]string(nil), b.progress...)
	b.mu.Unlock()

	for _, m := range msgs {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
			return
		}
	}
	// Hold the socket until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
