package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestServer(t *testing.T) (*Server, *websocket.Conn, context.CancelFunc) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := NewServer(hub, nil)
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return srv, conn, cancel
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return event
}

func TestConnectReceivesWelcome(t *testing.T) {
	_, conn, cancel := dialTestServer(t)
	defer cancel()

	event := readEvent(t, conn)
	if event["type"] != "welcome" {
		t.Fatalf("first event = %v; want welcome", event)
	}
}

func TestPublishReachesConnectedPage(t *testing.T) {
	srv, conn, cancel := dialTestServer(t)
	defer cancel()

	readEvent(t, conn) // welcome

	// Registration races the publish; give the hub a beat.
	time.Sleep(20 * time.Millisecond)

	srv.Publish(context.Background(), map[string]any{
		"type":    "track.changed",
		"payload": map[string]any{"index": 2},
	})

	event := readEvent(t, conn)
	if event["type"] != "track.changed" {
		t.Fatalf("event = %v; want track.changed", event)
	}
	payload, _ := event["payload"].(map[string]any)
	if payload["index"] != float64(2) {
		t.Fatalf("payload = %v", payload)
	}
}

func TestBroadcastDropsWhenNobodyListens(t *testing.T) {
	hub := NewHub()
	// No Run loop: the buffered channel fills, further sends drop
	// instead of blocking the caller.
	for i := 0; i < 200; i++ {
		hub.Broadcast([]byte("x"))
	}
}
