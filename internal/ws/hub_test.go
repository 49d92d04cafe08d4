package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberCoalescesToLatest(t *testing.T) {
	sub := &subscriber{send: make(chan []byte, 1)}

	sub.push([]byte("v1"))
	sub.push([]byte("v2"))
	sub.push([]byte("v3"))

	select {
	case msg := <-sub.send:
		assert.Equal(t, "v3", string(msg))
	default:
		t.Fatal("expected a pending message")
	}

	select {
	case msg := <-sub.send:
		t.Fatalf("expected no further messages, got %s", msg)
	default:
	}
}

func TestBroadcastReachesSubscribedTopicOnly(t *testing.T) {
	hub := NewHub()
	sub := hub.subscribe("t-1")
	defer hub.unsubscribe("t-1", sub)

	hub.Broadcast("t-2", map[string]string{"tournament": "t-2"})
	select {
	case msg := <-sub.send:
		t.Fatalf("subscriber of t-1 received broadcast for t-2: %s", msg)
	default:
	}

	hub.Broadcast("t-1", map[string]string{"tournament": "t-1"})
	select {
	case msg := <-sub.send:
		assert.Contains(t, string(msg), "t-1")
	case <-time.After(time.Second):
		t.Fatal("broadcast did not reach subscriber")
	}
}

func TestServeConnDeliversBroadcast(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.ServeConn(r.Context(), "t-1", conn)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// wait for the subscription to register before broadcasting
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("t-1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("t-1", map[string]any{"version": 42})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"version":42`)
}
