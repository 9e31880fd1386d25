package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws", WSHandler(hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading message: %v", err)
	}
	return string(msg)
}

func TestHubWelcomeAndBroadcast(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub)

	welcome := readMessage(t, conn)
	if !strings.Contains(welcome, `"run-reports"`) {
		t.Errorf("welcome message: %q", welcome)
	}

	// The handler registers the client before the welcome message, so after
	// reading it the subscription is visible.
	if hub.Count() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Count())
	}

	hub.BroadcastJSON(map[string]string{"slug": "fake-a"})
	msg := readMessage(t, conn)
	if !strings.Contains(msg, `"fake-a"`) {
		t.Errorf("broadcast: %q", msg)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub)
	readMessage(t, conn) // welcome

	conn.Close()

	// Closed connections are evicted on the next write.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() > 0 && time.Now().Before(deadline) {
		hub.BroadcastJSON(map[string]string{"ping": "x"})
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 0 {
		t.Errorf("expected closed client to be dropped, count=%d", hub.Count())
	}
}
