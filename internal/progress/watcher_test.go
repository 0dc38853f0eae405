package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func wsBase(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWatcher_URL(t *testing.T) {
	w := NewWatcher("ws://localhost:8008/")
	assert.Equal(t, "ws://localhost:8008/ws/scan/abc", w.URL("abc"))
}

func TestWatcher_PartialUpdates(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/scan/abc", r.URL.Path)
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"progress":40,"status":"running","current_task":"ports"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"progress":55.5}`))
		<-release
	}))
	defer srv.Close()
	defer close(release)

	updates := make(chan State, 32)
	w := NewWatcher(wsBase(srv), WithOnUpdate(func(_ string, s State) { updates <- s }))
	w.Watch("abc")
	defer w.Stop()

	want := State{Progress: 55.5, Status: "running", CurrentTask: "ports", Connected: true}
	require.Eventually(t, func() bool { return w.State() == want }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, w.Attempts())
}

func TestWatcher_ReconnectCap(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(rw, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	w := NewWatcher(wsBase(srv), WithReconnectDelay(5*time.Millisecond))
	w.Watch("abc")
	defer w.Stop()

	require.Eventually(t, func() bool { return dials.Load() == 6 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(6), dials.Load(), "one dial plus five reconnects")
	assert.Equal(t, 5, w.Attempts())
	assert.False(t, w.State().Connected)
}

func TestWatcher_OpenResetsAttempts(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		if n <= 3 {
			http.Error(rw, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"status":"running"}`))
		// Hold the socket open until the client leaves.
		conn.ReadMessage()
	}))
	defer srv.Close()

	w := NewWatcher(wsBase(srv), WithReconnectDelay(5*time.Millisecond))
	w.Watch("abc")
	defer w.Stop()

	require.Eventually(t, func() bool { return w.State().Connected }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, w.Attempts())
}

func TestWatcher_ClearResetsAndStopsReconnecting(t *testing.T) {
	var conns atomic.Int32
	connected := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conns.Add(1)
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"progress":10,"status":"running","current_task":"dns"}`))
		connected <- struct{}{}
		conn.ReadMessage()
	}))
	defer srv.Close()

	w := NewWatcher(wsBase(srv), WithReconnectDelay(5*time.Millisecond))
	w.Watch("abc")
	<-connected
	require.Eventually(t, func() bool { return w.State().Status == "running" }, 2*time.Second, 5*time.Millisecond)

	w.Watch("")

	assert.Equal(t, Idle(), w.State())
	assert.Equal(t, State{Progress: 0, Status: "idle"}, w.State())
	assert.Equal(t, "", w.ScanID())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), conns.Load(), "no reconnect after clearing the id")
	assert.Equal(t, Idle(), w.State())
}

func TestWatcher_SwitchingIDResetsState(t *testing.T) {
	paths := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if strings.HasSuffix(r.URL.Path, "/first") {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"progress":90,"status":"running"}`))
		}
		conn.ReadMessage()
	}))
	defer srv.Close()

	w := NewWatcher(wsBase(srv), WithReconnectDelay(5*time.Millisecond))
	defer w.Stop()

	w.Watch("first")
	require.Eventually(t, func() bool { return w.State().Progress == 90 }, 2*time.Second, 5*time.Millisecond)

	w.Watch("second")
	assert.Equal(t, float64(0), w.State().Progress)
	require.Eventually(t, func() bool { return w.State().Connected }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "idle", w.State().Status)

	assert.Equal(t, "/ws/scan/first", <-paths)
	assert.Equal(t, "/ws/scan/second", <-paths)
}
