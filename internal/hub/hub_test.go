package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"livetext/internal/metrics"
)

func newTestMetrics(t *testing.T) *metrics.HubMetrics {
	t.Helper()
	return metrics.NewHubMetrics(prometheus.NewRegistry())
}

type testHub struct {
	clients     *ClientManager
	broadcaster *Broadcaster
	server      *Server
	metrics     *metrics.HubMetrics
	url         string
}

// newTestHub runs a broadcast Server behind httptest and returns its parts.
func newTestHub(t *testing.T) *testHub {
	t.Helper()

	m := newTestMetrics(t)
	clock := clockwork.NewFakeClock()
	clients := NewClientManager(m)
	srv := NewServer(clients, ServerOptions{Clock: clock})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		clients.CloseAll()
		ts.Close()
	})

	return &testHub{
		clients:     clients,
		broadcaster: NewBroadcaster(clients, clock, m),
		server:      srv,
		metrics:     m,
		url:         "ws" + strings.TrimPrefix(ts.URL, "http"),
	}
}

func (h *testHub) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *testHub) waitForClientCount(t *testing.T, expected int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.clients.Len() == expected
	}, 2*time.Second, time.Millisecond, "expected %d registered clients", expected)
}

// connPair returns both ends of one WebSocket connection without involving
// the broadcast Server, so tests control registration directly.
func connPair(t *testing.T) (server, browser *websocket.Conn) {
	t.Helper()

	serverSide := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(ts.Close)

	browser, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = browser.Close() })

	select {
	case server = <-serverSide:
	case <-time.After(2 * time.Second):
		t.Fatal("upgrade did not complete")
	}
	t.Cleanup(func() { _ = server.Close() })
	return server, browser
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	return string(msg)
}

// assertNothingReceived checks that no frame arrives within a short window.
func assertNothingReceived(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, msg, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %q", msg)
}
