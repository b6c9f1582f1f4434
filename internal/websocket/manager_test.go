package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"
)

func startServer(t *testing.T) (*Manager, *httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(zerolog.Nop())
	go m.Run(ctx)

	srv := httptest.NewServer(NewHandler(m).SetupRoutes())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return m, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, auctionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/auctions/" + auctionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	assert.NoError(t, err)
	var msg map[string]any
	assert.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitForCount(t *testing.T, m *Manager, auctionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.SubscriberCount(auctionID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers for %s, got %d", want, auctionID, m.SubscriberCount(auctionID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWelcomeMessage(t *testing.T) {
	_, srv, _ := startServer(t)
	conn := dial(t, srv, "a1")

	msg := readJSON(t, conn)
	check.Equal(t, "connected", msg["type"])
	check.Equal(t, "a1", msg["auction_id"])
}

func TestBroadcastReachesOnlyWatchersOfThatAuction(t *testing.T) {
	m, srv, _ := startServer(t)
	watcher := dial(t, srv, "a1")
	other := dial(t, srv, "a2")
	readJSON(t, watcher)
	readJSON(t, other)
	waitForCount(t, m, "a1", 1)
	waitForCount(t, m, "a2", 1)

	m.Broadcast("a1", []byte(`{"type":"bid_accepted","auction_id":"a1"}`))

	msg := readJSON(t, watcher)
	check.Equal(t, "bid_accepted", msg["type"])

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	check.Error(t, err)
}

func TestDisconnectUnsubscribes(t *testing.T) {
	m, srv, _ := startServer(t)
	conn := dial(t, srv, "a1")
	readJSON(t, conn)
	waitForCount(t, m, "a1", 1)

	conn.Close()
	waitForCount(t, m, "a1", 0)
}

func TestShutdownClosesClients(t *testing.T) {
	m, srv, cancel := startServer(t)
	conn := dial(t, srv, "a1")
	readJSON(t, conn)
	waitForCount(t, m, "a1", 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	check.Error(t, err)
}

func TestStats(t *testing.T) {
	m, srv, _ := startServer(t)
	conn := dial(t, srv, "a1")
	readJSON(t, conn)
	waitForCount(t, m, "a1", 1)

	resp, err := http.Get(srv.URL + "/stats/auctions/a1")
	assert.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	check.Equal[any](t, float64(1), body["subscribers"])
}
